// Package worker implements the per-URL search loop.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch/internal/metrics"
	"github.com/JakeFAU/sitesearch/internal/search"
)

// internalErrorPayload is written for an item whose processing panicked.
const internalErrorPayload = "InternalError"

// Limiter delays fetches to the same host. *ratelimit.Limiter implements it.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) (time.Duration, error)
}

// Config controls Worker behavior.
type Config struct {
	Timeout time.Duration
	Headers http.Header
	// Limiter is optional.
	Limiter Limiter
}

// Worker pops URLs, fetches and scans them, and reports one record per URL.
type Worker struct {
	queue   search.WorkQueue
	results search.ResultQueue
	fetcher search.Fetcher
	matcher search.Matcher
	metrics *metrics.Collector
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker.
func New(
	queue search.WorkQueue,
	results search.ResultQueue,
	fetcher search.Fetcher,
	matcher search.Matcher,
	collector *metrics.Collector,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:   queue,
		results: results,
		fetcher: fetcher,
		matcher: matcher,
		metrics: collector,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run processes URLs until the work queue reports nothing pending. The batch
// is known up front, so an empty queue means this worker is done.
func (w *Worker) Run(ctx context.Context) {
	w.metrics.IncActiveWorkers()
	defer w.metrics.DecActiveWorkers()

	for {
		url, ok := w.queue.Pop()
		if !ok {
			w.logger.Debug("work queue exhausted")
			return
		}
		w.processURL(ctx, url)
	}
}

// processURL pushes the record before acknowledging the URL, so a drained
// work queue implies every record has reached the result queue.
func (w *Worker) processURL(ctx context.Context, url string) {
	record := w.search(ctx, url)
	if err := w.results.Push(record); err != nil {
		w.logger.Error("push record failed", zap.String("url", url), zap.Error(err))
	}
	if err := w.queue.Ack(); err != nil {
		w.logger.Error("ack failed", zap.String("url", url), zap.Error(err))
	}
}

func (w *Worker) search(ctx context.Context, url string) (record search.Record) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("search panicked", zap.String("url", url), zap.String("panic", fmt.Sprint(r)))
			record = search.Record{Source: url, Payload: internalErrorPayload, Failed: true}
		}
	}()

	if w.cfg.Limiter != nil {
		waited, err := w.cfg.Limiter.Wait(ctx, url)
		w.metrics.ObserveRateLimitDelay(url, waited)
		if err != nil {
			w.logger.Error("rate limit wait failed", zap.String("url", url), zap.Error(err))
			return search.Record{Source: url, Payload: string(search.ErrKindCanceled), Failed: true}
		}
	}

	out := w.fetcher.Fetch(ctx, search.FetchRequest{
		URL:     url,
		Timeout: w.cfg.Timeout,
		Headers: w.cfg.Headers,
	})
	w.metrics.ObserveFetch(out)

	switch out.Kind {
	case search.OutcomeSuccess:
		w.logger.Info("fetch succeeded", zap.Int("status", out.StatusCode), zap.String("url", url))
		return search.Record{Source: url, Payload: w.matcher.Match(out.Body).String()}
	case search.OutcomeHTTPError:
		w.logger.Error("fetch returned http error", zap.Int("status", out.StatusCode), zap.String("url", url))
	default:
		w.logger.Error("fetch failed", zap.String("kind", out.Describe()), zap.String("url", url))
	}
	return search.Record{Source: url, Payload: out.Describe(), Failed: true}
}
