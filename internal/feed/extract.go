// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// Extract parses one post snapshot into a PostRecord. It is pure and never
// retries: any missing required field returns an error, which the caller
// treats as "skip this item and advance", not as an abort.
func Extract(raw *RawItem) (*PostRecord, error) {

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse post snapshot: %w", err)
	}

	datetimeAttr, ok := doc.Find("time").First().Attr("datetime")
	if !ok || datetimeAttr == "" {
		return nil, fmt.Errorf("post has no timestamp attribute")
	}
	timestamp, err := dateparse.ParseAny(datetimeAttr)
	if err != nil {
		return nil, fmt.Errorf("unparsable post timestamp %q: %w", datetimeAttr, err)
	}

	name, handle := authorParts(doc)

	textSel := doc.Find(`div[data-testid="tweetText"]`).First()
	lang, _ := textSel.Attr("lang")

	rec := &PostRecord{
		Text:          textSel.Text(),
		AuthorName:    name,
		AuthorHandle:  handle,
		Timestamp:     timestamp,
		Lang:          lang,
		Permalink:     permalink(doc),
		MentionedURLs: mentionedURLs(doc),
		IsRepost:      isRepost(doc),
		Media:         mediaKind(doc),
		ImageURLs:     imageURLs(doc),
	}
	return rec, nil
}

// Permalink extracts only the status link from a snapshot. Used by the
// cursor's resume protocol, which identifies posts purely by permalink.
func Permalink(raw *RawItem) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return ""
	}
	return permalink(doc)
}

// authorParts splits the rendered author block into display name and handle.
// The block renders as name and @handle in separate spans.
func authorParts(doc *goquery.Document) (name, handle string) {
	doc.Find(`div[data-testid="User-Name"] span`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if t == "" || strings.Contains(t, "\n") {
			return true
		}
		if strings.HasPrefix(t, "@") {
			if handle == "" {
				handle = t
			}
		} else if name == "" {
			name = t
		}
		return name == "" || handle == ""
	})
	return name, handle
}

func permalink(doc *goquery.Document) string {
	var link string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/status/") {
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = "https://x.com" + href
		}
		link = href
		return false
	})
	return link
}

func mentionedURLs(doc *goquery.Document) []string {
	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http") {
			urls = append(urls, href)
		}
	})
	return urls
}

// isRepost checks the social-context line rendered above the author block,
// which is the first span in the article. A repost of an old post can surface
// between current ones, which is why the collector exempts reposts from its
// age cutoff. Only that line is consulted: a body that merely mentions the
// word must not be flagged.
func isRepost(doc *goquery.Document) bool {
	return strings.Contains(doc.Find("span").First().Text(), "reposted")
}

func mediaKind(doc *goquery.Document) MediaKind {
	if doc.Find(`div[data-testid="videoPlayer"]`).Length() > 0 {
		return MediaVideo
	}
	if doc.Find(`div[data-testid="tweetPhoto"]`).Length() > 0 {
		return MediaImage
	}
	return MediaNone
}

func imageURLs(doc *goquery.Document) []string {
	var urls []string
	doc.Find(`div[data-testid="tweetPhoto"] img`).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
	})
	return urls
}
