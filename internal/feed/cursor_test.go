package feed

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aitrendspot/trendletter/internal/browser"
	"github.com/stretchr/testify/require"
)

// fakePage serves a fixed stack of head snapshots with destructive-read
// semantics over the cursor's peek/consume scripts.
type fakePage struct {
	heads      []string
	consumeErr error
	navigates  int
}

func (f *fakePage) Navigate(_ string, _ time.Duration) error {
	f.navigates++
	return nil
}

func (f *fakePage) Eval(js string, out interface{}, _ time.Duration) error {
	switch js {
	case peekScript:
		html := out.(*string)
		if len(f.heads) == 0 {
			*html = ""
		} else {
			*html = f.heads[0]
		}
	case consumeScript:
		if f.consumeErr != nil {
			return f.consumeErr
		}
		removed := out.(*bool)
		if len(f.heads) > 0 {
			f.heads = f.heads[1:]
			*removed = true
		}
	}
	return nil
}

func (f *fakePage) Restart() error        { return nil }
func (f *fakePage) CollectGarbage() error { return nil }

func statusArticle(n int) string {
	return fmt.Sprintf(`<article data-testid="tweet"><a href="/u/status/%d">post</a></article>`, n)
}

func statusPermalink(n int) string {
	return fmt.Sprintf("https://x.com/u/status/%d", n)
}

func newFakeCursor(page *fakePage) *TimelineCursor {
	return &TimelineCursor{
		session:    page,
		url:        "https://x.com/i/lists/1",
		maxRetries: 3,
	}
}

func TestResumeAfterConsumesThroughPermalink(t *testing.T) {
	page := &fakePage{heads: []string{statusArticle(1), statusArticle(2), statusArticle(3)}}
	c := newFakeCursor(page)

	require.NoError(t, c.ResumeAfter(statusPermalink(2)))
	require.Equal(t, 1, page.navigates)

	// The next head is the first post not seen before the crash.
	item, err := c.PeekHead()
	require.NoError(t, err)
	require.Equal(t, statusPermalink(3), Permalink(item))
}

func TestResumeAfterFeedExhausted(t *testing.T) {
	page := &fakePage{heads: []string{statusArticle(1)}}
	c := newFakeCursor(page)

	// The permalink never shows up; the scan ends cleanly at exhaustion.
	require.NoError(t, c.ResumeAfter(statusPermalink(99)))
	require.Empty(t, page.heads)
}

func TestResumeAfterBailsOnUnremovableHead(t *testing.T) {
	page := &fakePage{
		heads:      []string{statusArticle(1)},
		consumeErr: errors.New("node is detached"),
	}
	c := newFakeCursor(page)

	err := c.ResumeAfter(statusPermalink(99))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stuck")
}

func TestResumeAfterPropagatesSessionLoss(t *testing.T) {
	page := &fakePage{
		heads:      []string{statusArticle(1)},
		consumeErr: fmt.Errorf("%w: websocket closed", browser.ErrSessionLost),
	}
	c := newFakeCursor(page)

	require.ErrorIs(t, c.ResumeAfter(statusPermalink(99)), ErrSessionLost)
}
