// Package memory provides the in-process queues that connect the URL
// workers to the output sink.
package memory

import (
	"context"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// WorkQueue holds the pending URLs of a finite batch. Pop never blocks: an
// empty queue means the batch is exhausted and the caller should stop.
type WorkQueue struct {
	q *fifo[string]
}

// NewWorkQueue returns an empty WorkQueue.
func NewWorkQueue() *WorkQueue {
	return &WorkQueue{q: newFIFO[string]()}
}

// Push appends a URL.
func (w *WorkQueue) Push(url string) error {
	return w.q.push(url)
}

// Pop returns the next URL, or false when nothing is pending.
func (w *WorkQueue) Pop() (string, bool) {
	return w.q.tryPop()
}

// Ack marks one popped URL as fully processed.
func (w *WorkQueue) Ack() error {
	return w.q.ack()
}

// Drained reports whether every pushed URL has been popped and acknowledged.
func (w *WorkQueue) Drained() bool {
	return w.q.drained()
}

// WaitDrained blocks until Drained would return true or ctx ends.
func (w *WorkQueue) WaitDrained(ctx context.Context) error {
	return w.q.waitDrained(ctx)
}

// Stats returns the pending and in-flight counts.
func (w *WorkQueue) Stats() (pending, inFlight int) {
	return w.q.stats()
}

// ResultQueue carries records from the workers to the single output sink.
// Pop blocks, since the sink outlives the producers.
type ResultQueue struct {
	q *fifo[search.Record]
}

// NewResultQueue returns an empty ResultQueue.
func NewResultQueue() *ResultQueue {
	return &ResultQueue{q: newFIFO[search.Record]()}
}

// Push appends a record. It fails with ErrClosed after Close.
func (r *ResultQueue) Push(record search.Record) error {
	return r.q.push(record)
}

// Pop blocks until a record is available. It returns ErrClosed once the
// queue is closed and empty, or the context error if ctx ends first.
func (r *ResultQueue) Pop(ctx context.Context) (search.Record, error) {
	return r.q.pop(ctx)
}

// Ack marks one popped record as durably written.
func (r *ResultQueue) Ack() error {
	return r.q.ack()
}

// Drained reports whether every pushed record has been popped and acknowledged.
func (r *ResultQueue) Drained() bool {
	return r.q.drained()
}

// WaitDrained blocks until Drained would return true or ctx ends.
func (r *ResultQueue) WaitDrained(ctx context.Context) error {
	return r.q.waitDrained(ctx)
}

// Close wakes a blocked consumer. Safe to call more than once.
func (r *ResultQueue) Close() {
	r.q.close()
}

// Stats returns the pending and in-flight counts.
func (r *ResultQueue) Stats() (pending, inFlight int) {
	return r.q.stats()
}
