package publisher

import (
	"context"
	"time"
)

// Newsletter is one generated issue ready for delivery.
type Newsletter struct {
	Title     string
	Body      string // Markdown
	StartDate time.Time
	EndDate   time.Time
}

// Publisher delivers a newsletter over one channel. Implementations isolate
// per-recipient failures: one bad address never blocks the rest.
type Publisher interface {
	Publish(ctx context.Context, letter *Newsletter) error
}

// RecipientSource yields the current subscriber list at send time, so a
// database-backed list picks up changes between runs.
type RecipientSource interface {
	ListSubscribers(ctx context.Context) ([]string, error)
}

// StaticRecipients adapts a fixed config-file list to RecipientSource.
type StaticRecipients []string

func (s StaticRecipients) ListSubscribers(_ context.Context) ([]string, error) {
	return s, nil
}
