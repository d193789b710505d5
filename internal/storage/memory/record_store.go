// Package memory keeps search records in-memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// RecordStore collects records in write order.
type RecordStore struct {
	mu      sync.RWMutex
	records []search.Record
	closed  bool
}

// NewRecordStore creates an empty in-memory store.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// WriteRecord appends the record.
func (s *RecordStore) WriteRecord(_ context.Context, record search.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Close marks the store closed; records remain readable.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Records returns a snapshot of everything written so far.
func (s *RecordStore) Records() []search.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]search.Record(nil), s.records...)
}

// Closed reports whether Close has been called.
func (s *RecordStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
