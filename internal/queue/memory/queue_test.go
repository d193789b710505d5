package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitesearch/internal/search"
)

func TestWorkQueuePopEmptyDoesNotBlock(t *testing.T) {
	t.Parallel()

	q := NewWorkQueue()
	_, ok := q.Pop()
	require.False(t, ok)
	require.True(t, q.Drained())
	require.NoError(t, q.WaitDrained(context.Background()))
}

func TestWorkQueueFIFOAndDrain(t *testing.T) {
	t.Parallel()

	q := NewWorkQueue()
	require.NoError(t, q.Push("a"))
	require.NoError(t, q.Push("b"))
	require.False(t, q.Drained())

	first, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "a", first)
	second, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "b", second)

	_, ok = q.Pop()
	require.False(t, ok)
	// Nothing pending, but both items are still in flight.
	require.False(t, q.Drained())
	pending, inFlight := q.Stats()
	require.Equal(t, 0, pending)
	require.Equal(t, 2, inFlight)

	require.NoError(t, q.Ack())
	require.False(t, q.Drained())
	require.NoError(t, q.Ack())
	require.True(t, q.Drained())
}

func TestWorkQueueAckUnderflow(t *testing.T) {
	t.Parallel()

	q := NewWorkQueue()
	require.ErrorIs(t, q.Ack(), ErrAckUnderflow)
}

func TestWorkQueueWaitDrainedBlocksUntilAck(t *testing.T) {
	t.Parallel()

	q := NewWorkQueue()
	require.NoError(t, q.Push("a"))
	_, ok := q.Pop()
	require.True(t, ok)

	done := make(chan error, 1)
	go func() {
		done <- q.WaitDrained(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("WaitDrained returned before ack")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Ack())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitDrained did not return after ack")
	}
}

func TestWorkQueueWaitDrainedHonoursContext(t *testing.T) {
	t.Parallel()

	q := NewWorkQueue()
	require.NoError(t, q.Push("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.WaitDrained(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitDrainedCanceledDoesNotLeakWaiters(t *testing.T) {
	t.Parallel()

	q := NewWorkQueue()
	require.NoError(t, q.Push("a"))
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		require.ErrorIs(t, q.WaitDrained(ctx), context.DeadlineExceeded)
		cancel()
	}
	require.Zero(t, waiterCount(q.q))

	// A live waiter is still released by the drain.
	done := make(chan error, 1)
	go func() { done <- q.WaitDrained(context.Background()) }()
	require.Eventually(t, func() bool { return waiterCount(q.q) == 1 }, time.Second, time.Millisecond)
	_, ok := q.Pop()
	require.True(t, ok)
	require.NoError(t, q.Ack())
	require.NoError(t, <-done)
	require.Zero(t, waiterCount(q.q))
}

func waiterCount[T any](q *fifo[T]) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

func TestWorkQueueConcurrentConsumersSeeEachItemOnce(t *testing.T) {
	t.Parallel()

	const n = 500
	q := NewWorkQueue()
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(fmt.Sprintf("u%d", i)))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int, n)
		wg   sync.WaitGroup
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				url, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[url]++
				mu.Unlock()
				if err := q.Ack(); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for url, count := range seen {
		require.Equalf(t, 1, count, "url %s popped %d times", url, count)
	}
	require.True(t, q.Drained())
}

func TestResultQueuePopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := NewResultQueue()
	got := make(chan search.Record, 1)
	go func() {
		rec, err := q.Pop(context.Background())
		if err == nil {
			got <- rec
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Push(search.Record{Source: "https://a.test", Payload: "[]"}))

	select {
	case rec := <-got:
		require.Equal(t, "https://a.test", rec.Source)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return pushed record")
	}
}

func TestResultQueuePopCanceled(t *testing.T) {
	t.Parallel()

	q := NewResultQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "pop canceled: context canceled", err.Error())
}

func TestResultQueueCloseWakesConsumer(t *testing.T) {
	t.Parallel()

	q := NewResultQueue()
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, ErrClosed))
	case <-time.After(time.Second):
		t.Fatal("Close did not wake consumer")
	}
	// Closing twice should be safe.
	q.Close()
	require.ErrorIs(t, q.Push(search.Record{}), ErrClosed)
}

func TestResultQueueHandsOutItemsPushedBeforeClose(t *testing.T) {
	t.Parallel()

	q := NewResultQueue()
	require.NoError(t, q.Push(search.Record{Source: "a"}))
	q.Close()

	rec, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", rec.Source)
	_, err = q.Pop(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestResultQueueDrainRequiresAck(t *testing.T) {
	t.Parallel()

	q := NewResultQueue()
	producers := 8
	perProducer := 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Push(search.Record{Source: fmt.Sprintf("p%d-%d", p, i)}); err != nil {
					t.Error(err)
				}
			}
		}(p)
	}

	var written []string
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			rec, err := q.Pop(context.Background())
			if err != nil {
				return
			}
			written = append(written, rec.Source)
			if err := q.Ack(); err != nil {
				t.Error(err)
			}
		}
	}()

	wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.WaitDrained(ctx))
	q.Close()
	<-consumerDone

	require.Len(t, written, producers*perProducer)
	sort.Strings(written)
	for i := 1; i < len(written); i++ {
		require.NotEqual(t, written[i-1], written[i])
	}
}
