package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/aitrendspot/trendletter/internal/collector"
	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/aitrendspot/trendletter/internal/publisher"
	"github.com/aitrendspot/trendletter/internal/store"
	"github.com/aitrendspot/trendletter/internal/summarizer"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Harvester is the collection stage boundary; collector.Collector satisfies
// it.
type Harvester interface {
	Collect(ctx context.Context) ([]feed.PostRecord, error)
}

// Combiner is the preprocessing stage boundary; preprocess.Preprocessor
// satisfies it.
type Combiner interface {
	CombineThreads(records []feed.PostRecord) []string
}

// Runner drives one end-to-end issue: harvest, thread/period grouping, CSV
// persist, optional archive, preprocess, summarize, distribute.
type Runner struct {
	harvester  Harvester
	combiner   Combiner
	summarizer summarizer.Summarizer
	publishers []publisher.Publisher

	archive *store.Store // nil when no database is configured

	title      string
	threadGap  time.Duration
	anchorDate time.Time
	startDate  time.Time
	outputDir  string
}

type Config struct {
	Title      string
	ThreadGap  time.Duration
	StartDate  time.Time
	AnchorDate time.Time
	OutputDir  string
}

func New(cfg Config, h Harvester, c Combiner, s summarizer.Summarizer, pubs []publisher.Publisher, archive *store.Store) *Runner {
	if cfg.ThreadGap <= 0 {
		cfg.ThreadGap = collector.DefaultThreadGap
	}
	return &Runner{
		harvester:  h,
		combiner:   c,
		summarizer: s,
		publishers: pubs,
		archive:    archive,
		title:      cfg.Title,
		threadGap:  cfg.ThreadGap,
		anchorDate: cfg.AnchorDate,
		startDate:  cfg.StartDate,
		outputDir:  cfg.OutputDir,
	}
}

// Run executes the full pipeline once.
func (r *Runner) Run(ctx context.Context) error {

	logrus.Infof("Starting pipeline for %s to %s",
		r.startDate.Format("2006-01-02"), r.anchorDate.Format("2006-01-02"))

	records, err := r.harvester.Collect(ctx)
	if err != nil {
		// A partial harvest is still worth persisting before bailing.
		if len(records) > 0 {
			r.persist(ctx, r.group(records))
		}
		return fmt.Errorf("runner: collection failed: %w", err)
	}
	if len(records) == 0 {
		logrus.Info("No posts collected. Nothing to publish.")
		return nil
	}
	logrus.Infof("Collected %d posts", len(records))

	records = r.group(records)
	r.persist(ctx, records)

	docs := r.combiner.CombineThreads(records)
	if len(docs) == 0 {
		logrus.Info("All threads filtered out as noise. Nothing to publish.")
		return nil
	}

	logrus.Info("Summarizing threads...")
	summary, err := r.summarizer.Summarize(ctx, docs)
	if err != nil {
		return fmt.Errorf("runner: summarize failed: %w", err)
	}

	letter := &publisher.Newsletter{
		Title:     r.title,
		Body:      summary,
		StartDate: r.startDate,
		EndDate:   r.anchorDate,
	}

	var publishErrors []error
	for _, pub := range r.publishers {
		logrus.Infof("Publishing via %T...", pub)
		if err := pub.Publish(ctx, letter); err != nil {
			publishErrors = append(publishErrors, err)
			logrus.Warnf("Publish via %T failed: %v", pub, err)
		}
	}

	if len(r.publishers) > 0 && len(publishErrors) == len(r.publishers) {
		return fmt.Errorf("runner: all publishers failed: %v", publishErrors)
	}

	logrus.Info("Pipeline completed.")
	return nil
}

func (r *Runner) group(records []feed.PostRecord) []feed.PostRecord {
	records = collector.AssignThreads(records, r.threadGap)
	return collector.AssignPeriods(records, r.anchorDate)
}

// persist writes the per-period CSVs and, when configured, the database
// archive. Both sinks are best-effort relative to the newsletter itself.
func (r *Runner) persist(ctx context.Context, records []feed.PostRecord) {
	if _, err := store.WriteCSVByPeriod(records, r.outputDir, "tweets_week"); err != nil {
		logrus.Errorf("CSV export failed: %v", err)
	}
	if r.archive != nil {
		if err := r.archive.SavePosts(ctx, uuid.New(), records); err != nil {
			logrus.Errorf("Post archive failed: %v", err)
		}
	}
}
