package summarizer

import "context"

// Summarizer condenses the combined thread documents into newsletter text.
// A failure here is fatal for the run: there is no partial newsletter.
type Summarizer interface {
	Summarize(ctx context.Context, docs []string) (string, error)
}
