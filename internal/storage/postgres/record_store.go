// Package postgres provides a Postgres-backed record writer.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "search_results"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string
	Table           string
	RunID           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Validate checks the DSN and table name without connecting.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("output.postgres.dsn is required")
	}
	if _, err := pgxpool.ParseConfig(c.DSN); err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}
	if c.Table != "" && !validTableName.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	return nil
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore writes one row per record into Postgres.
type RecordStore struct {
	pool  execCloser
	table string
	runID string
	now   func() time.Time
}

// NewRecordStore connects to Postgres and ensures the results table exists.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("output.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewRecordStoreWithPool(pool, cfg.Table, cfg.RunID)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool execCloser, table, runID string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{
		pool:  pool,
		table: table,
		runID: runID,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// EnsureSchema creates the results table when it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	payload TEXT NOT NULL,
	failed BOOLEAN NOT NULL DEFAULT FALSE,
	written_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// WriteRecord inserts a single result row.
func (s *RecordStore) WriteRecord(ctx context.Context, record search.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	url,
	payload,
	failed,
	written_at
) VALUES (
	$1,$2,$3,$4,$5
)`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.runID, record.Source, record.Payload, record.Failed, s.now()); err != nil {
		return fmt.Errorf("insert record for %s: %w", record.Source, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
