package collector

import (
	"testing"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/stretchr/testify/require"
)

func threaded(author, stamp string, thread int) feed.PostRecord {
	r := post(author, stamp)
	r.ThreadID = thread
	return r
}

func TestAssignPeriodsByThreadMinDate(t *testing.T) {
	// Anchor 2025-02-20, earliest thread post 2025-02-10: 10 days back
	// lands in period 2.
	records := []feed.PostRecord{
		threaded("x", "2025-02-10 09:00:00", 1),
		threaded("x", "2025-02-12 09:00:00", 1),
	}

	out := AssignPeriods(records, day("2025-02-20"))
	require.Equal(t, 2, out[0].PeriodGroup)
	require.Equal(t, 2, out[1].PeriodGroup)
}

func TestAssignPeriodsThreadInheritsEarliestPost(t *testing.T) {
	// The later post alone would fall in period 1, but the thread's
	// earliest post pins the whole thread to period 2.
	records := []feed.PostRecord{
		threaded("x", "2025-02-13 23:59:00", 7),
		threaded("x", "2025-02-19 00:01:00", 7),
	}

	out := AssignPeriods(records, day("2025-02-20"))
	require.Equal(t, out[0].PeriodGroup, out[1].PeriodGroup)
	require.Equal(t, 2, out[0].PeriodGroup)
}

func TestAssignPeriodsMonotonicWithAge(t *testing.T) {
	records := []feed.PostRecord{
		threaded("a", "2025-02-19 10:00:00", 1),
		threaded("b", "2025-02-12 10:00:00", 2),
		threaded("c", "2025-02-05 10:00:00", 3),
		threaded("d", "2025-01-20 10:00:00", 4),
	}

	out := AssignPeriods(records, day("2025-02-20"))

	last := 0
	for _, r := range out {
		require.GreaterOrEqual(t, r.PeriodGroup, last)
		last = r.PeriodGroup
	}
}

func TestAssignPeriodsIdempotent(t *testing.T) {
	records := []feed.PostRecord{
		threaded("a", "2025-02-19 10:00:00", 1),
		threaded("b", "2025-02-10 10:00:00", 2),
	}

	once := AssignPeriods(records, day("2025-02-20"))
	twice := AssignPeriods(once, day("2025-02-20"))
	require.Equal(t, once, twice)
}

func TestAssignPeriodsSortsByThreadThenTime(t *testing.T) {
	records := []feed.PostRecord{
		threaded("b", "2025-02-18 10:00:00", 2),
		threaded("a", "2025-02-19 11:00:00", 1),
		threaded("a", "2025-02-19 10:00:00", 1),
	}

	out := AssignPeriods(records, day("2025-02-20"))
	require.Equal(t, 1, out[0].ThreadID)
	require.True(t, out[0].Timestamp.Before(out[1].Timestamp))
	require.Equal(t, 2, out[2].ThreadID)
}

func TestAssignPeriodsAnchorZoneInsensitive(t *testing.T) {
	// An anchor built as local midnight east of UTC must not shave hours off
	// an exact 7-day span: 2025-02-13 to 2025-02-20 is period 2 regardless
	// of the anchor's zone.
	anchor := time.Date(2025, 2, 20, 0, 0, 0, 0, time.FixedZone("UTC+8", 8*60*60))
	records := []feed.PostRecord{threaded("x", "2025-02-13 10:00:00", 1)}

	out := AssignPeriods(records, anchor)
	require.Equal(t, 2, out[0].PeriodGroup)
}

func TestAssignPeriodsAnchorDay(t *testing.T) {
	// A thread starting on the anchor date itself is period 1.
	records := []feed.PostRecord{threaded("x", "2025-02-20 08:00:00", 1)}
	out := AssignPeriods(records, time.Date(2025, 2, 20, 23, 0, 0, 0, time.UTC))
	require.Equal(t, 1, out[0].PeriodGroup)
}
