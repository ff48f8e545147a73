package preprocess

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/sirupsen/logrus"
)

// minCombinedLength is the noise floor: combined thread texts at or below
// this length are dropped before summarization.
const minCombinedLength = 20

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// Preprocessor turns threaded records into the flat documents handed to the
// summarizer: one combined text per thread, optionally with shortened URLs
// resolved to their final destinations.
type Preprocessor struct {
	client      *http.Client
	resolveURLs bool
	pause       time.Duration
}

func New(resolveURLs bool) *Preprocessor {
	return &Preprocessor{
		client:      &http.Client{Timeout: 15 * time.Second},
		resolveURLs: resolveURLs,
		pause:       500 * time.Millisecond,
	}
}

// CombineThreads joins each thread's post texts in timestamp order and
// filters out threads too short to carry signal.
func (p *Preprocessor) CombineThreads(records []feed.PostRecord) []string {

	byThread := make(map[int][]feed.PostRecord)
	var order []int
	for _, r := range records {
		if _, ok := byThread[r.ThreadID]; !ok {
			order = append(order, r.ThreadID)
		}
		byThread[r.ThreadID] = append(byThread[r.ThreadID], r)
	}
	sort.Ints(order)

	var docs []string
	for _, id := range order {
		thread := byThread[id]
		sort.SliceStable(thread, func(i, j int) bool {
			return thread[i].Timestamp.Before(thread[j].Timestamp)
		})

		var parts []string
		for _, r := range thread {
			text := r.Text
			if p.resolveURLs {
				text = p.resolveInText(text)
				for _, u := range r.MentionedURLs {
					text += " " + p.resolveURL(u)
				}
			}
			parts = append(parts, text)
		}

		combined := strings.TrimSpace(strings.Join(parts, " "))
		if len(combined) > minCombinedLength {
			docs = append(docs, combined)
		}
	}

	logrus.Infof("Combined %d threads into %d documents after noise filtering.", len(order), len(docs))
	return docs
}

// resolveInText replaces every shortened URL inside a text with its resolved
// form.
func (p *Preprocessor) resolveInText(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, p.resolveURL)
}

// resolveURL follows redirects with a HEAD request and returns the final
// URL. Resolution failures fall back to the original string; a short pause
// between calls avoids rate limiting.
func (p *Preprocessor) resolveURL(shortURL string) string {
	resp, err := p.client.Head(shortURL)
	if err != nil {
		logrus.Warnf("Error resolving URL %s: %v", shortURL, err)
		return shortURL
	}
	resp.Body.Close()
	time.Sleep(p.pause)
	return resp.Request.URL.String()
}
