package feed

import (
	"time"
)

type MediaKind string

const (
	MediaNone  MediaKind = "No media"
	MediaImage MediaKind = "Image"
	MediaVideo MediaKind = "Video"
)

// PostRecord is one extracted timeline post. Records are immutable once
// extracted; ThreadID and PeriodGroup are filled in by the grouping pass
// after collection finishes.
type PostRecord struct {
	Text          string
	AuthorName    string
	AuthorHandle  string
	Timestamp     time.Time
	Lang          string
	Permalink     string
	MentionedURLs []string
	IsRepost      bool
	Media         MediaKind
	ImageURLs     []string

	ThreadID    int
	PeriodGroup int
}

// Date truncates the record timestamp to calendar-day precision.
func (r PostRecord) Date() time.Time {
	return DateOf(r.Timestamp)
}

// DateOf truncates t to its calendar day, pinned to UTC midnight. Post
// timestamps arrive in UTC while window bounds are derived from host time;
// pinning both to the same instant per calendar day keeps date comparisons
// zone-independent.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
