// SPDX-License-Identifier: AGPL-3.0-only
package collector

import (
	"sort"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/sirupsen/logrus"
)

// DefaultThreadGap is the inactivity threshold separating two threads by
// the same author.
const DefaultThreadGap = 2 * time.Minute

// AssignThreads partitions the records into conversation threads: a run of
// same-author posts where no two consecutive posts are further apart than
// gap. The input is returned sorted by (author, timestamp) with ThreadID
// filled in from a single monotonically increasing counter shared across
// all authors. The counter is a plain fold over the sorted slice, so the
// partition is deterministic regardless of input order.
func AssignThreads(records []feed.PostRecord, gap time.Duration) []feed.PostRecord {
	if gap <= 0 {
		gap = DefaultThreadGap
	}

	logrus.Infof("Assigning thread numbers to %d posts (gap threshold %s)...", len(records), gap)

	out := make([]feed.PostRecord, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AuthorName != out[j].AuthorName {
			return out[i].AuthorName < out[j].AuthorName
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	threadCount := 0
	lastAuthor := ""
	var lastTime time.Time

	for i := range out {
		r := &out[i]
		if threadCount == 0 || r.AuthorName != lastAuthor || r.Timestamp.Sub(lastTime) > gap {
			threadCount++
		}
		r.ThreadID = threadCount
		lastAuthor = r.AuthorName
		lastTime = r.Timestamp
	}

	return out
}
