// SPDX-License-Identifier: AGPL-3.0-only
package collector

import (
	"sort"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/sirupsen/logrus"
)

// AssignPeriods buckets every thread into a 7-day reporting period counted
// back from anchor. The whole thread inherits the period of its earliest
// post, even when later posts fall into a different calendar week: the
// thread is the atomic narrative unit. Output is sorted by (thread, time).
func AssignPeriods(records []feed.PostRecord, anchor time.Time) []feed.PostRecord {

	logrus.Info("Grouping posts into 7-day intervals by thread...")

	anchorDay := feed.DateOf(anchor)

	minDates := make(map[int]time.Time)
	for _, r := range records {
		d := r.Date()
		if cur, ok := minDates[r.ThreadID]; !ok || d.Before(cur) {
			minDates[r.ThreadID] = d
		}
	}

	out := make([]feed.PostRecord, len(records))
	copy(out, records)

	for i := range out {
		days := int(anchorDay.Sub(minDates[out[i].ThreadID]).Hours() / 24)
		out[i].PeriodGroup = floorDiv(days, 7) + 1
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ThreadID != out[j].ThreadID {
			return out[i].ThreadID < out[j].ThreadID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out
}

// floorDiv is integer division rounding toward negative infinity, so a
// thread newer than the anchor lands in period 0 rather than 1.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
