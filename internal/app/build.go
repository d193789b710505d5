package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch/internal/config"
	collyfetcher "github.com/JakeFAU/sitesearch/internal/fetcher/colly"
	"github.com/JakeFAU/sitesearch/internal/matcher"
	"github.com/JakeFAU/sitesearch/internal/metrics"
	"github.com/JakeFAU/sitesearch/internal/policy/ratelimit"
	"github.com/JakeFAU/sitesearch/internal/search"
	"github.com/JakeFAU/sitesearch/internal/source"
	"github.com/JakeFAU/sitesearch/internal/storage/local"
	"github.com/JakeFAU/sitesearch/internal/storage/postgres"
)

// FromConfig wires the production collaborators described by cfg and
// returns an App ready to Run. The output destination is checked here so a
// bad one fails fast, but it is opened only once the URL list is in hand.
func FromConfig(ctx context.Context, cfg config.Config, collector *metrics.Collector, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxBodySize:   cfg.HTTP.MaxBodyBytes,
		OnRobotsFallback: func(host string) {
			logger.Warn("robots.txt unavailable, proceeding", zap.String("host", host))
		},
	})

	m, err := matcher.New(cfg.Search.Pattern,
		matcher.WithLimit(cfg.Search.TopN),
		matcher.WithHTMLText(cfg.Search.HTMLTextOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}

	if err := checkOutput(cfg.Output); err != nil {
		return nil, err
	}

	opts := Options{
		Workers: cfg.Search.Workers,
		Timeout: cfg.FetchTimeout(),
		Headers: cfg.RequestHeaders(),
		RunID:   runID,
	}
	if limiter := ratelimit.New(ratelimit.Config{
		PerHostRPS: cfg.HTTP.PerHostRPS,
		Burst:      cfg.HTTP.PerHostBurst,
	}); limiter.Enabled() {
		opts.Limiter = limiter
	}

	a, err := New(opts, Dependencies{
		Source:  newSource(cfg, fetcher),
		Fetcher: fetcher,
		Matcher: m,
		OpenWriter: func(ctx context.Context) (search.RecordWriter, error) {
			return newWriter(ctx, cfg.Output, runID, logger)
		},
		Metrics: collector,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newSource(cfg config.Config, fetcher search.Fetcher) search.Source {
	if len(cfg.Source.URLs) > 0 {
		return source.StaticSource(cfg.Source.URLs)
	}
	return source.NewHTTPSource(fetcher, search.FetchRequest{
		URL:     cfg.Source.URL,
		Timeout: cfg.FetchTimeout(),
		Headers: cfg.RequestHeaders(),
	}, source.Format{
		Delimiter: cfg.Source.Delimiter,
		Field:     cfg.Source.Field,
		Scheme:    cfg.Source.Scheme,
	})
}

func checkOutput(out config.OutputConfig) error {
	switch out.Kind {
	case config.OutputPostgres:
		if err := (postgres.Config{DSN: out.Postgres.DSN, Table: out.Postgres.Table}).Validate(); err != nil {
			return fmt.Errorf("check postgres output: %w", err)
		}
	case config.OutputFile, "":
		if err := local.Check(local.Config{Path: out.Path}); err != nil {
			return fmt.Errorf("check file output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output kind %q", out.Kind)
	}
	return nil
}

func newWriter(ctx context.Context, out config.OutputConfig, runID string, logger *zap.Logger) (search.RecordWriter, error) {
	switch out.Kind {
	case config.OutputPostgres:
		store, err := postgres.NewRecordStore(ctx, postgres.Config{
			DSN:      out.Postgres.DSN,
			Table:    out.Postgres.Table,
			RunID:    runID,
			MaxConns: out.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres output: %w", err)
		}
		logger.Info("writing records to postgres", zap.String("table", out.Postgres.Table))
		return store, nil
	case config.OutputFile, "":
		w, err := local.New(local.Config{Path: out.Path})
		if err != nil {
			return nil, fmt.Errorf("open file output: %w", err)
		}
		logger.Info("writing records to file", zap.String("path", w.Path()))
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported output kind %q", out.Kind)
	}
}
