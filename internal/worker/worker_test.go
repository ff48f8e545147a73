package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func (r *blockingRunner) Run(_ context.Context) error {
	r.runs.Add(1)
	if r.started != nil {
		close(r.started)
	}
	if r.release != nil {
		<-r.release
	}
	return nil
}

func TestRunOnceSkipsOverlappingRun(t *testing.T) {
	runner := &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := NewWorker(runner)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.RunOnce(context.Background())
	}()

	<-runner.started
	w.RunOnce(context.Background()) // overlaps, must be skipped
	close(runner.release)
	wg.Wait()

	require.Equal(t, int32(1), runner.runs.Load())
}

func TestRunOnceRunsAgainAfterCompletion(t *testing.T) {
	runner := &blockingRunner{}
	w := NewWorker(runner)

	w.RunOnce(context.Background())
	w.RunOnce(context.Background())
	require.Equal(t, int32(2), runner.runs.Load())
}

func TestStartStopLifecycle(t *testing.T) {
	w := NewWorker(&blockingRunner{})

	require.False(t, w.IsActive())
	require.NoError(t, w.Start("0 8 * * 1"))
	require.True(t, w.IsActive())

	// Starting twice is a no-op.
	require.NoError(t, w.Start("0 8 * * 1"))

	w.Stop()
	require.False(t, w.IsActive())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	w := NewWorker(&blockingRunner{})
	require.Error(t, w.Start("not a cron spec"))
	require.False(t, w.IsActive())
}
