package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned when pushing to or popping from a closed queue.
	ErrClosed = errors.New("queue closed")
	// ErrAckUnderflow is returned when Ack is called without a matching pop.
	ErrAckUnderflow = errors.New("ack without in-flight item")
)

// fifo is an unbounded FIFO that tracks in-flight items. It is drained once
// nothing is pending and every popped item has been acknowledged.
type fifo[T any] struct {
	mu       sync.Mutex
	items    []T
	inFlight int
	closed   bool
	ready    chan struct{}
	done     chan struct{}
	waiters  []chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (q *fifo[T]) push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.signalLocked()
	return nil
}

// tryPop removes the head item without blocking.
func (q *fifo[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// pop blocks until an item is available, the queue closes or ctx ends.
// Items pushed before Close are still handed out.
func (q *fifo[T]) pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		item, ok := q.popLocked()
		closed := q.closed
		q.mu.Unlock()
		if ok {
			return item, nil
		}
		var zero T
		if closed {
			return zero, ErrClosed
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("pop canceled: %w", ctx.Err())
		case <-q.done:
		case <-q.ready:
		}
	}
}

func (q *fifo[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.inFlight++
	if len(q.items) > 0 {
		q.signalLocked()
	}
	return item, true
}

func (q *fifo[T]) signalLocked() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *fifo[T]) ack() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight == 0 {
		return ErrAckUnderflow
	}
	q.inFlight--
	if q.drainedLocked() {
		for _, w := range q.waiters {
			close(w)
		}
		q.waiters = nil
	}
	return nil
}

func (q *fifo[T]) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drainedLocked()
}

func (q *fifo[T]) drainedLocked() bool {
	return len(q.items) == 0 && q.inFlight == 0
}

// waitDrained blocks until the queue is drained or ctx ends.
func (q *fifo[T]) waitDrained(ctx context.Context) error {
	q.mu.Lock()
	if q.drainedLocked() {
		q.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		q.removeWaiter(w)
		return fmt.Errorf("wait drained: %w", ctx.Err())
	}
}

// removeWaiter drops w unless a drain already released it.
func (q *fifo[T]) removeWaiter(w chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, candidate := range q.waiters {
		if candidate == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

func (q *fifo[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *fifo[T]) stats() (pending, inFlight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), q.inFlight
}
