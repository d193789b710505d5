// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level in development")
	}
	defer Sync(logger) //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug to be disabled in production")
	}
	defer Sync(logger) //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestForRunAddsRunID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ForRun(zap.New(core), "run-42").Info("started")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["run_id"]; got != "run-42" {
		t.Fatalf("expected run_id field, got %v", got)
	}

	// A nil logger is tolerated.
	ForRun(nil, "x").Info("discarded")
}

func TestSyncNilLogger(t *testing.T) {
	t.Parallel()

	if err := Sync(nil); err != nil {
		t.Fatalf("Sync(nil) error = %v", err)
	}
	if err := Sync(zap.NewNop()); err != nil {
		t.Fatalf("Sync(nop) error = %v", err)
	}
}
