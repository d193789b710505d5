// Package dispatcher runs the fixed-size worker pool.
package dispatcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Runner is a long-running unit of work, typically a *worker.Worker.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher fans a batch out to a fixed pool of workers.
type Dispatcher struct {
	workers []Runner
}

// New creates a Dispatcher.
func New(workers ...Runner) *Dispatcher {
	return &Dispatcher{workers: workers}
}

// Size returns the number of workers in the pool.
func (d *Dispatcher) Size() int {
	return len(d.workers)
}

// Run starts all workers and blocks until every one of them has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, w := range d.workers {
		g.Go(func() error {
			w.Run(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	return nil
}
