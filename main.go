package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aitrendspot/trendletter/internal/browser"
	"github.com/aitrendspot/trendletter/internal/collector"
	"github.com/aitrendspot/trendletter/internal/config"
	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/aitrendspot/trendletter/internal/preprocess"
	"github.com/aitrendspot/trendletter/internal/publisher"
	"github.com/aitrendspot/trendletter/internal/runner"
	"github.com/aitrendspot/trendletter/internal/store"
	"github.com/aitrendspot/trendletter/internal/summarizer"
	"github.com/aitrendspot/trendletter/internal/worker"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {

	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalln(err)
	}

	var archive *store.Store
	if cfg.Database.DSN != "" {
		archive, err = store.Open(cfg.Database.DSN, cfg.Database.MigrationsDir)
		if err != nil {
			logrus.Fatalln(err)
		}
		defer archive.Close()
	}

	r := buildRunner(cfg, archive)

	if *once {
		if err := r.Run(context.Background()); err != nil {
			logrus.Fatalln(err)
		}
		return
	}

	w := worker.NewWorker(r)
	if err := w.Start(cfg.Schedule); err != nil {
		logrus.Fatalln(err)
	}
	if cfg.RunOnStart {
		go w.RunOnce(context.Background())
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	w.Stop()
}

// buildRunner wires the pipeline stages from config. The harvester is a
// closure so each run gets a fresh browser session and date window.
func buildRunner(cfg *config.Config, archive *store.Store) *runner.Runner {

	endDate := feed.DateOf(time.Now())
	startDate := endDate.AddDate(0, 0, -cfg.WindowDays)

	gem := summarizer.NewGeminiSummarizer(cfg.Summarizer.APIKey, cfg.Summarizer.Model, cfg.Summarizer.PromptVersion)
	pre := preprocess.New(cfg.Summarizer.ResolveURLs)

	var recipients publisher.RecipientSource = publisher.StaticRecipients(cfg.Publisher.Email.To)
	if archive != nil {
		recipients = archive
	}

	var pubs []publisher.Publisher
	for _, t := range cfg.Publisher.Types {
		switch t {
		case "email":
			pubs = append(pubs, publisher.NewEmailPublisher(
				cfg.Publisher.Email.SMTPHost, cfg.Publisher.Email.SMTPPort,
				cfg.Publisher.Email.Username, cfg.Publisher.Email.Password,
				cfg.Publisher.Email.From, recipients))
		case "discord":
			pubs = append(pubs, publisher.NewDiscordPublisher(
				cfg.Publisher.Discord.Token, cfg.Publisher.Discord.ChannelID))
		case "stdout":
			pubs = append(pubs, publisher.NewStdoutPublisher())
		}
	}

	harvester := &sessionHarvester{cfg: cfg, startDate: startDate, endDate: endDate}

	return runner.New(runner.Config{
		Title:      cfg.Title,
		ThreadGap:  time.Duration(cfg.ThreadGap) * time.Minute,
		StartDate:  startDate,
		AnchorDate: endDate,
		OutputDir:  cfg.OutputDir,
	}, harvester, pre, gem, pubs, archive)
}

// sessionHarvester owns the browser for the duration of one collection run.
type sessionHarvester struct {
	cfg       *config.Config
	startDate time.Time
	endDate   time.Time
}

func (h *sessionHarvester) Collect(ctx context.Context) ([]feed.PostRecord, error) {

	session := browser.NewSession(browser.Options{
		Headless:  h.cfg.Browser.Headless,
		Username:  h.cfg.Browser.Username,
		Password:  h.cfg.Browser.Password,
		AuthToken: h.cfg.Browser.AuthToken,
	})
	if err := session.Start(); err != nil {
		return nil, err
	}
	defer session.Close()

	cursor := feed.NewTimelineCursor(session, h.cfg.ListURL)
	if err := cursor.Open(); err != nil {
		return nil, err
	}

	opts := collector.DefaultOptions(h.startDate, h.endDate)
	opts.Lookahead = h.cfg.Collector.Lookahead
	opts.HousekeepEvery = h.cfg.Collector.HousekeepEvery
	opts.MaxConsecutiveErrors = h.cfg.Collector.MaxConsecutiveErrors

	if h.cfg.Collector.BudgetMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(h.cfg.Collector.BudgetMinutes)*time.Minute)
		defer cancel()
	}

	return collector.New(cursor, opts).Collect(ctx)
}
