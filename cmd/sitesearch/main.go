package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch/internal/api"
	"github.com/JakeFAU/sitesearch/internal/app"
	"github.com/JakeFAU/sitesearch/internal/config"
	"github.com/JakeFAU/sitesearch/internal/logging"
	"github.com/JakeFAU/sitesearch/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("sitesearch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cfgPath := flags.String("config", "", "Path to config file")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config failed: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() {
		if syncErr := logging.Sync(logger); syncErr != nil {
			fmt.Fprintf(stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		logger.Error("metrics init failed", zap.Error(err))
		return 1
	}

	runner, err := app.FromConfig(ctx, cfg, collector, logger)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		return 1
	}

	serverCtx, stopServer := context.WithCancel(ctx)
	serverDone := make(chan struct{})
	if cfg.Server.Addr != "" {
		status := api.NewServer(runner, reg, collector, logger.Named("api"))
		go func() {
			defer close(serverDone)
			if err := status.ListenAndServe(serverCtx, cfg.Server.Addr); err != nil {
				logger.Error("status server error", zap.Error(err))
			}
		}()
	} else {
		close(serverDone)
	}

	summary, err := runner.Run(ctx)
	stopServer()
	<-serverDone
	if err != nil {
		logger.Error("search run failed", zap.String("run_id", summary.RunID), zap.Error(err))
		return 1
	}
	logger.Info("search run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("urls", summary.URLs),
		zap.Int("records", summary.Records),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return 0
}
