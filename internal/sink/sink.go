// Package sink drains the result queue into a record writer.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch/internal/metrics"
	"github.com/JakeFAU/sitesearch/internal/queue/memory"
	"github.com/JakeFAU/sitesearch/internal/search"
)

// Queue is the consumer side of the result queue.
type Queue interface {
	Pop(ctx context.Context) (search.Record, error)
	Ack() error
}

// Sink is the single consumer of the result queue. It is not safe to Run
// more than once concurrently.
type Sink struct {
	queue   Queue
	writer  search.RecordWriter
	metrics *metrics.Collector
	logger  *zap.Logger

	written  atomic.Int64
	failures atomic.Int64
}

// New constructs a Sink.
func New(queue Queue, writer search.RecordWriter, collector *metrics.Collector, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		queue:   queue,
		writer:  writer,
		metrics: collector,
		logger:  logger,
	}
}

// Run writes records until the queue is closed. A failed write is logged and
// the record is still acknowledged.
func (s *Sink) Run(ctx context.Context) error {
	for {
		record, err := s.queue.Pop(ctx)
		if errors.Is(err, memory.ErrClosed) {
			s.logger.Debug("result queue closed")
			return nil
		}
		if err != nil {
			return fmt.Errorf("sink: %w", err)
		}

		writeErr := s.writer.WriteRecord(ctx, record)
		s.metrics.ObserveRecordWritten(record, writeErr)
		if writeErr != nil {
			s.logger.Error("write record failed", zap.String("url", record.Source), zap.Error(writeErr))
		} else {
			s.written.Add(1)
			if record.Failed {
				s.failures.Add(1)
			}
		}
		if err := s.queue.Ack(); err != nil {
			s.logger.Error("ack failed", zap.String("url", record.Source), zap.Error(err))
		}
	}
}

// Written returns the number of records written successfully.
func (s *Sink) Written() int {
	return int(s.written.Load())
}

// Failures returns how many written records describe a failed fetch.
func (s *Sink) Failures() int {
	return int(s.failures.Load())
}
