// SPDX-License-Identifier: AGPL-3.0-only
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/sirupsen/logrus"
)

// Options bound one collection run. StartDate and EndDate are inclusive
// calendar days; everything else has a usable default from DefaultOptions.
type Options struct {
	StartDate time.Time
	EndDate   time.Time

	// Lookahead is how many additional posts are inspected once a
	// non-repost older than StartDate shows up at the head. If any of them
	// is back inside the window the whole run is kept and scanning resumes;
	// otherwise the window is considered exhausted.
	Lookahead int

	// HousekeepEvery triggers browser memory reclamation after that many
	// consumed posts.
	HousekeepEvery int

	// RetryPause is the sleep after a transient processing error.
	RetryPause time.Duration

	// MaxConsecutiveErrors caps how many times in a row the loop may fail
	// without making progress before the run is abandoned. The Python
	// ancestor of this loop retried forever; an explicit budget keeps a
	// wedged session from hanging the whole pipeline.
	MaxConsecutiveErrors int
}

func DefaultOptions(startDate, endDate time.Time) Options {
	return Options{
		StartDate:            startDate,
		EndDate:              endDate,
		Lookahead:            2,
		HousekeepEvery:       100,
		RetryPause:           5 * time.Second,
		MaxConsecutiveErrors: 30,
	}
}

// Collector walks the live timeline head-first, accumulating posts inside
// the date window until the boundary policy decides the window is exhausted.
type Collector struct {
	cursor  feed.Cursor
	extract func(*feed.RawItem) (*feed.PostRecord, error)
	opts    Options

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

func New(cursor feed.Cursor, opts Options) *Collector {
	if opts.Lookahead <= 0 {
		opts.Lookahead = 2
	}
	if opts.HousekeepEvery <= 0 {
		opts.HousekeepEvery = 100
	}
	if opts.MaxConsecutiveErrors <= 0 {
		opts.MaxConsecutiveErrors = 30
	}
	// Window bounds are calendar days. Normalizing them the same way record
	// dates are normalized keeps the comparison meaningful when the caller
	// built the bounds in a non-UTC zone.
	opts.StartDate = feed.DateOf(opts.StartDate)
	opts.EndDate = feed.DateOf(opts.EndDate)
	return &Collector{
		cursor:  cursor,
		extract: feed.Extract,
		opts:    opts,
		sleep:   time.Sleep,
	}
}

// Collect runs the scan loop until the window is exhausted, the feed runs
// dry, the context is cancelled, or the error budget is spent. Whatever has
// been accumulated so far is always returned, also on error: an interrupted
// harvest is still a usable partial dataset.
func (c *Collector) Collect(ctx context.Context) ([]feed.PostRecord, error) {

	logrus.Infof("Collecting posts from %s to %s...",
		c.opts.StartDate.Format("2006-01-02"), c.opts.EndDate.Format("2006-01-02"))

	var records []feed.PostRecord
	consumed := 0
	consecutiveErrs := 0
	lastPermalink := ""

	for {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if consecutiveErrs >= c.opts.MaxConsecutiveErrors {
			return records, fmt.Errorf("collector: giving up after %d consecutive errors", consecutiveErrs)
		}

		raw, err := c.cursor.PeekHead()
		if errors.Is(err, feed.ErrNoItem) {
			// The feed running dry is a normal terminal state.
			logrus.Infof("Feed exhausted; collected %d posts.", len(records))
			return records, nil
		}
		if err != nil {
			if c.recover(err, lastPermalink, &consecutiveErrs) {
				continue
			}
			return records, err
		}

		rec, err := c.extract(raw)
		if err != nil {
			// Structurally broken item: skip and advance.
			logrus.Warnf("Skipping unextractable post: %v", err)
			c.consume(&consecutiveErrs, lastPermalink)
			continue
		}

		logrus.Infof("Processing post from %s, date: %s", rec.AuthorName, rec.Timestamp.Format("2006-01-02"))

		switch {
		case rec.Date().Before(c.opts.StartDate) && !rec.IsRepost:
			kept, done, err := c.boundaryCheck(rec, &lastPermalink, &consecutiveErrs)
			if err != nil {
				if c.recover(err, lastPermalink, &consecutiveErrs) {
					continue
				}
				return records, err
			}
			if done {
				logrus.Infof("No valid posts found within range. Stopping with %d posts.", len(records))
				return records, nil
			}
			records = append(records, kept...)

		case rec.Date().After(c.opts.EndDate):
			// Too-new posts above the window are noise, not an ordering
			// violation; discard and keep scanning.
			logrus.Info("Post is newer than end date. Skipping...")
			c.consume(&consecutiveErrs, lastPermalink)

		default:
			records = append(records, *rec)
			if rec.Permalink != "" {
				lastPermalink = rec.Permalink
			}
			c.consume(&consecutiveErrs, lastPermalink)
			consumed++
			if consumed%c.opts.HousekeepEvery == 0 {
				if err := c.cursor.Housekeep(); err != nil {
					logrus.Warnf("Housekeeping failed: %v", err)
				}
			}
		}

		consecutiveErrs = 0
	}
}

// boundaryCheck runs once the head post fell below StartDate. It consumes up
// to Lookahead further posts: if one of them is back in the window, the
// whole looked-ahead run (trigger included) is collected and scanning
// resumes; if none qualify the window is exhausted and nothing is kept.
func (c *Collector) boundaryCheck(trigger *feed.PostRecord, lastPermalink *string, consecutiveErrs *int) (kept []feed.PostRecord, done bool, err error) {

	logrus.Info("Post is older than start date. Checking next posts...")

	oldPosts := []feed.PostRecord{*trigger}

	for i := 0; i < c.opts.Lookahead; i++ {
		c.consume(consecutiveErrs, *lastPermalink)

		raw, err := c.cursor.PeekHead()
		if errors.Is(err, feed.ErrNoItem) {
			continue
		}
		if err != nil {
			return nil, false, err
		}

		next, err := c.extract(raw)
		if err != nil {
			logrus.Warnf("Skipping unextractable post during boundary check: %v", err)
			continue
		}

		oldPosts = append(oldPosts, *next)

		if !next.Date().Before(c.opts.StartDate) {
			logrus.Info("Found a valid post within the range. Continuing...")
			if next.Permalink != "" {
				*lastPermalink = next.Permalink
			}
			c.consume(consecutiveErrs, *lastPermalink)
			return oldPosts, false, nil
		}
	}

	return nil, true, nil
}

// consume removes the head element. Removal is best-effort: anything short
// of a dead session is logged and ignored, because the caller will re-peek
// and either see the same head again or a new one.
func (c *Collector) consume(consecutiveErrs *int, lastPermalink string) {
	if err := c.cursor.ConsumeHead(); err != nil {
		if errors.Is(err, feed.ErrSessionLost) {
			c.recover(err, lastPermalink, consecutiveErrs)
			return
		}
		logrus.Warnf("Error clearing post: %v", err)
	}
}

// recover handles a failed cursor call. Session loss restarts the browser
// and re-synchronizes position via the last collected permalink; any other
// error gets a pause. Returns whether the loop should continue.
func (c *Collector) recover(err error, lastPermalink string, consecutiveErrs *int) bool {
	*consecutiveErrs++

	if errors.Is(err, feed.ErrSessionLost) {
		logrus.Warnf("Browser session lost: %v. Restarting...", err)
		if rerr := c.cursor.Restart(); rerr != nil {
			logrus.Errorf("Restart failed: %v", rerr)
			c.sleep(c.opts.RetryPause)
			return true
		}
		if lastPermalink != "" {
			if rerr := c.cursor.ResumeAfter(lastPermalink); rerr != nil {
				logrus.Errorf("Resume after restart failed: %v", rerr)
			}
		}
		return true
	}

	logrus.Warnf("Error processing post: %v", err)
	c.sleep(c.opts.RetryPause)
	return true
}
