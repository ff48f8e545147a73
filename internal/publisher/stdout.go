package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdoutPublisher prints the newsletter to a writer. Used for dry runs.
type StdoutPublisher struct {
	Out io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{Out: os.Stdout}
}

func (p *StdoutPublisher) Publish(_ context.Context, letter *Newsletter) error {
	fmt.Fprintf(p.Out, "%s (%s - %s)\n", letter.Title,
		letter.StartDate.Format("2006-01-02"), letter.EndDate.Format("2006-01-02"))
	fmt.Fprintln(p.Out, strings.Repeat("-", 50))
	fmt.Fprintln(p.Out, letter.Body)
	fmt.Fprintln(p.Out, strings.Repeat("-", 50))
	return nil
}
