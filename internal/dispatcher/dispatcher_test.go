// Package dispatcher contains tests for worker coordination.
package dispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDispatcherRunWaitsForAllWorkers ensures Run only returns once every worker exits.
func TestDispatcherRunWaitsForAllWorkers(t *testing.T) {
	t.Parallel()

	var finished atomic.Int32
	release := make(chan struct{})
	workers := make([]Runner, 0, 5)
	for i := 0; i < 5; i++ {
		workers = append(workers, runnerFunc(func(context.Context) {
			<-release
			finished.Add(1)
		}))
	}
	d := New(workers...)
	require.Equal(t, 5, d.Size())

	done := make(chan error, 1)
	go func() {
		done <- d.Run(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("dispatcher returned before workers finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not return after workers finished")
	}
	require.EqualValues(t, 5, finished.Load())
}

// TestDispatcherRunsWorkersConcurrently verifies workers are not serialised.
func TestDispatcherRunsWorkersConcurrently(t *testing.T) {
	t.Parallel()

	const n = 4
	var started atomic.Int32
	allStarted := make(chan struct{})
	workers := make([]Runner, 0, n)
	for i := 0; i < n; i++ {
		workers = append(workers, runnerFunc(func(context.Context) {
			if started.Add(1) == n {
				close(allStarted)
			}
			<-allStarted
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, New(workers...).Run(ctx))
}

// TestDispatcherEmptyPool returns immediately.
func TestDispatcherEmptyPool(t *testing.T) {
	t.Parallel()

	require.NoError(t, New().Run(context.Background()))
}

type runnerFunc func(ctx context.Context)

func (f runnerFunc) Run(ctx context.Context) {
	f(ctx)
}
