package worker

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner is the unit of scheduled work; runner.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context) error
}

// Worker runs the pipeline on a cron schedule, skipping ticks that land
// while a previous run is still going.
type Worker struct {
	runner Runner
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	active  bool
}

func NewWorker(r Runner) *Worker {
	return &Worker{
		runner: r,
		cron:   cron.New(),
	}
}

func (w *Worker) Start(schedule string) error {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		logrus.Warn("Worker: scheduler already active")
		return nil
	}
	w.active = true
	w.mu.Unlock()

	_, err := w.cron.AddFunc(schedule, func() {
		w.RunOnce(context.Background())
	})
	if err != nil {
		w.mu.Lock()
		w.active = false
		w.mu.Unlock()
		return err
	}

	w.cron.Start()
	logrus.Infof("Background worker started with schedule: %s", schedule)
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		logrus.Warn("Worker: scheduler not active")
		return
	}
	w.active = false
	w.mu.Unlock()

	ctx := w.cron.Stop()
	<-ctx.Done()
	logrus.Info("Background worker stopped")
}

func (w *Worker) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// RunOnce executes a single pipeline run unless one is already in flight.
func (w *Worker) RunOnce(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		logrus.Warn("Worker: run already in progress, skipping...")
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.runner.Run(ctx); err != nil {
		logrus.Errorf("Pipeline run failed: %v", err)
	}
}
