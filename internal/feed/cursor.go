// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/aitrendspot/trendletter/internal/browser"
	"github.com/sirupsen/logrus"
)

// ErrNoItem means the timeline had no visible post after the peek retries
// were exhausted. It is a normal terminal condition, not a failure.
var ErrNoItem = errors.New("feed: no item present")

// ErrSessionLost re-exports the browser-level sentinel so callers only need
// to depend on this package.
var ErrSessionLost = browser.ErrSessionLost

// RawItem is a snapshot of the first visible timeline post, captured at peek
// time. It stays meaningful until the head is consumed; after that the DOM
// has moved on and the snapshot is stale.
type RawItem struct {
	HTML string
}

// Cursor is the destructive-read interface over the live timeline. The feed
// has no pagination token: advancing means removing the current head element
// so the next one surfaces. Position after a crash is recovered by permalink
// identity via ResumeAfter.
type Cursor interface {
	PeekHead() (*RawItem, error)
	ConsumeHead() error
	Restart() error
	ResumeAfter(lastSeenPermalink string) error
	Housekeep() error
}

const articleSelector = `article[data-testid="tweet"]`

const peekScript = `(() => {
	const el = document.querySelector('` + articleSelector + `');
	return el ? el.outerHTML : "";
})()`

const consumeScript = `(() => {
	const el = document.querySelector('` + articleSelector + `');
	if (el) { el.remove(); return true; }
	return false;
})()`

// pageSession is the slice of browser.Session the cursor drives. Tests
// substitute a fake page.
type pageSession interface {
	Navigate(url string, settle time.Duration) error
	Eval(js string, out interface{}, timeout time.Duration) error
	Restart() error
	CollectGarbage() error
}

type TimelineCursor struct {
	session pageSession
	url     string

	peekTimeout time.Duration
	maxRetries  int
	retryDelay  time.Duration
	settle      time.Duration
}

func NewTimelineCursor(session *browser.Session, url string) *TimelineCursor {
	return &TimelineCursor{
		session:     session,
		url:         url,
		peekTimeout: 10 * time.Second,
		maxRetries:  5,
		retryDelay:  2 * time.Second,
		settle:      5 * time.Second,
	}
}

// Open loads the timeline URL and waits for the page to settle.
func (c *TimelineCursor) Open() error {
	return c.session.Navigate(c.url, c.settle)
}

// PeekHead polls for the first visible post. Transient misses (page still
// rendering, element detached mid-read) are retried; a dead browser is
// surfaced as ErrSessionLost so the caller can restart.
func (c *TimelineCursor) PeekHead() (*RawItem, error) {

	for retries := 0; retries < c.maxRetries; retries++ {
		var html string
		err := c.session.Eval(peekScript, &html, c.peekTimeout)
		if err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return nil, err
			}
			logrus.Debugf("Retrying post search (%d/%d): %v", retries+1, c.maxRetries, err)
			time.Sleep(c.retryDelay)
			continue
		}
		if html != "" {
			return &RawItem{HTML: html}, nil
		}
		time.Sleep(c.retryDelay)
	}

	logrus.Info("No post found after retries.")
	return nil, ErrNoItem
}

// ConsumeHead removes the current head post from the page. Removal is
// best-effort: a failure here must not wedge the scan loop, so callers treat
// any non-fatal error as "re-peek and carry on".
func (c *TimelineCursor) ConsumeHead() error {
	var removed bool
	err := c.session.Eval(consumeScript, &removed, c.peekTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrSessionLost) {
			return err
		}
		logrus.Warnf("Error clearing post element: %v", err)
		return err
	}
	if !removed {
		logrus.Debug("No post to delete.")
	}
	return nil
}

// Restart re-establishes the browser session and reloads the timeline from
// the top.
func (c *TimelineCursor) Restart() error {
	if err := c.session.Restart(); err != nil {
		return fmt.Errorf("restart failed: %w", err)
	}
	return c.Open()
}

// ResumeAfter reloads the timeline and consumes posts until the one matching
// lastSeenPermalink has been consumed, so that processing picks up with
// posts not seen before the crash. If the permalink never shows up the feed
// is left wherever exhaustion stopped it. A head that refuses to clear ends
// the scan after maxRetries stuck rounds rather than looping forever.
func (c *TimelineCursor) ResumeAfter(lastSeenPermalink string) error {
	logrus.Infof("Resuming from last processed post: %s", lastSeenPermalink)

	if err := c.Open(); err != nil {
		return err
	}

	prev := ""
	seen := false
	stuck := 0
	for {
		item, err := c.PeekHead()
		if errors.Is(err, ErrNoItem) {
			logrus.Warn("Feed exhausted before the last processed post was found.")
			return nil
		}
		if err != nil {
			return err
		}

		permalink := Permalink(item)
		if seen && permalink == prev {
			stuck++
			if stuck >= c.maxRetries {
				return fmt.Errorf("resume stuck on unremovable post %q after %d attempts", permalink, stuck)
			}
		} else {
			stuck = 0
		}
		prev, seen = permalink, true

		if err := c.ConsumeHead(); err != nil && errors.Is(err, browser.ErrSessionLost) {
			return err
		}
		if permalink != "" && permalink == lastSeenPermalink {
			logrus.Info("Found and consumed last processed post; resuming after it.")
			return nil
		}
	}
}

// Housekeep reclaims renderer memory. Called periodically by the collector
// to keep a long-running page session bounded.
func (c *TimelineCursor) Housekeep() error {
	logrus.Info("Triggering Chrome garbage collection...")
	return c.session.CollectGarbage()
}
