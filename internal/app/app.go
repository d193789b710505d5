// Package app runs a single search batch: it seeds the work queue, starts the
// output sink and the worker pool, and waits for both queues to drain.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sitesearch/internal/api"
	"github.com/JakeFAU/sitesearch/internal/dispatcher"
	"github.com/JakeFAU/sitesearch/internal/logging"
	"github.com/JakeFAU/sitesearch/internal/metrics"
	"github.com/JakeFAU/sitesearch/internal/queue/memory"
	"github.com/JakeFAU/sitesearch/internal/search"
	"github.com/JakeFAU/sitesearch/internal/sink"
	"github.com/JakeFAU/sitesearch/internal/worker"
)

// DefaultWorkers is the pool size used when Options.Workers is not positive.
const DefaultWorkers = 20

const gaugeInterval = 250 * time.Millisecond

// Options tunes a run.
type Options struct {
	Workers int
	Timeout time.Duration
	Headers http.Header
	// Limiter spaces requests per host; nil disables it.
	Limiter worker.Limiter
	// RunID labels logs and stored rows. A uuid is generated when empty.
	RunID string
}

// WriterOpener opens the record destination. Run calls it only after the URL
// list has been retrieved, so a failed run leaves earlier output untouched.
type WriterOpener func(ctx context.Context) (search.RecordWriter, error)

// Dependencies are the collaborators a run is built from. Exactly one of
// Writer and OpenWriter must be set.
type Dependencies struct {
	Source     search.Source
	Fetcher    search.Fetcher
	Matcher    search.Matcher
	Writer     search.RecordWriter
	OpenWriter WriterOpener
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

// Summary describes a completed run.
type Summary struct {
	RunID    string
	URLs     int
	Records  int
	Failures int
	Elapsed  time.Duration
}

// App owns both queues and every goroutine of a run.
type App struct {
	opts    Options
	deps    Dependencies
	work    *memory.WorkQueue
	results *memory.ResultQueue
	logger  *zap.Logger

	ran   atomic.Bool
	ready atomic.Bool
	done  atomic.Bool
	urls  atomic.Int64

	mu   sync.RWMutex
	sink *sink.Sink
}

// New validates dependencies and constructs an App ready to Run once.
func New(opts Options, deps Dependencies) (*App, error) {
	if deps.Source == nil {
		return nil, errors.New("source is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if deps.Matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if (deps.Writer == nil) == (deps.OpenWriter == nil) {
		return nil, errors.New("exactly one of record writer or writer opener is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &App{
		opts:    opts,
		deps:    deps,
		work:    memory.NewWorkQueue(),
		results: memory.NewResultQueue(),
		logger:  logging.ForRun(deps.Logger, opts.RunID),
	}, nil
}

// RunID returns the identifier of this run.
func (a *App) RunID() string {
	return a.opts.RunID
}

// Run executes the batch. Only a failure to obtain the URL list or to open
// the output (or a second call) is returned as an error; per-URL failures
// become records. A writer opened or supplied for the run is closed before
// Run returns.
func (a *App) Run(ctx context.Context) (summary Summary, err error) {
	start := time.Now()
	summary.RunID = a.opts.RunID
	if !a.ran.CompareAndSwap(false, true) {
		return summary, errors.New("app already ran")
	}
	writer := a.deps.Writer
	defer func() {
		if writer != nil {
			if closeErr := writer.Close(); closeErr != nil {
				a.logger.Error("close record writer failed", zap.Error(closeErr))
				if err == nil {
					err = fmt.Errorf("close record writer: %w", closeErr)
				}
			}
		}
		a.done.Store(true)
		summary.Elapsed = time.Since(start)
	}()

	urls, err := a.deps.Source.ListURLs(ctx)
	if err != nil {
		a.logger.Error("url list unavailable", zap.Error(err))
		return summary, fmt.Errorf("list urls: %w", err)
	}
	if writer == nil {
		opened, openErr := a.deps.OpenWriter(ctx)
		if openErr != nil {
			a.logger.Error("open record writer failed", zap.Error(openErr))
			return summary, fmt.Errorf("open record writer: %w", openErr)
		}
		writer = opened
	}
	for _, u := range urls {
		if err := a.work.Push(u); err != nil {
			return summary, fmt.Errorf("seed work queue: %w", err)
		}
	}
	summary.URLs = len(urls)
	a.urls.Store(int64(len(urls)))
	a.deps.Metrics.SetQueuePending(len(urls))
	a.ready.Store(true)
	a.logger.Info("work queue seeded", zap.Int("urls", len(urls)), zap.Int("workers", a.opts.Workers))

	out := sink.New(a.results, writer, a.deps.Metrics, a.logger.Named("sink"))
	a.mu.Lock()
	a.sink = out
	a.mu.Unlock()

	pool := dispatcher.New(a.workers()...)
	stopGauge := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return out.Run(ctx) })
	g.Go(func() error { return pool.Run(ctx) })
	g.Go(func() error {
		a.reportPending(stopGauge)
		return nil
	})

	drainErr := a.drain(ctx)
	a.results.Close()
	close(stopGauge)
	joinErr := g.Wait()
	a.deps.Metrics.SetQueuePending(0)

	summary.Records = out.Written()
	summary.Failures = out.Failures()

	if drainErr != nil {
		a.logger.Warn("run interrupted", zap.Error(drainErr))
		return summary, drainErr
	}
	if joinErr != nil {
		return summary, fmt.Errorf("join tasks: %w", joinErr)
	}
	a.logger.Info("run complete",
		zap.Int("urls", summary.URLs),
		zap.Int("records", summary.Records),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}

// drain waits for the work queue first: workers push each record before
// acknowledging its URL, so once work is drained every record is already in
// the result queue and waiting on it is sufficient.
func (a *App) drain(ctx context.Context) error {
	if err := a.work.WaitDrained(ctx); err != nil {
		return fmt.Errorf("work queue: %w", err)
	}
	a.logger.Debug("work queue drained")
	if err := a.results.WaitDrained(ctx); err != nil {
		return fmt.Errorf("result queue: %w", err)
	}
	a.logger.Debug("result queue drained")
	return nil
}

func (a *App) workers() []dispatcher.Runner {
	cfg := worker.Config{Timeout: a.opts.Timeout, Headers: a.opts.Headers, Limiter: a.opts.Limiter}
	runners := make([]dispatcher.Runner, 0, a.opts.Workers)
	for i := 0; i < a.opts.Workers; i++ {
		runners = append(runners, worker.New(
			a.work,
			a.results,
			a.deps.Fetcher,
			a.deps.Matcher,
			a.deps.Metrics,
			cfg,
			a.logger.Named("worker").With(zap.Int("worker", i)),
		))
	}
	return runners
}

func (a *App) reportPending(stop <-chan struct{}) {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pending, _ := a.work.Stats()
			a.deps.Metrics.SetQueuePending(pending)
		}
	}
}

// Progress implements api.ProgressSource.
func (a *App) Progress() api.Progress {
	p := api.Progress{
		RunID: a.opts.RunID,
		Ready: a.ready.Load(),
		Done:  a.done.Load(),
		URLs:  int(a.urls.Load()),
	}
	p.WorkPending, p.WorkInFlight = a.work.Stats()
	p.ResultPending, p.ResultInFlight = a.results.Stats()
	a.mu.RLock()
	if a.sink != nil {
		p.Written = a.sink.Written()
		p.Failures = a.sink.Failures()
	}
	a.mu.RUnlock()
	return p
}
