package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/sitesearch/internal/queue/memory"
	"github.com/JakeFAU/sitesearch/internal/search"
	memstore "github.com/JakeFAU/sitesearch/internal/storage/memory"
)

type failingWriter struct {
	mu    sync.Mutex
	calls int
}

func (f *failingWriter) WriteRecord(context.Context, search.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func (f *failingWriter) Close() error { return nil }

func TestSinkWritesRecordsUntilClosed(t *testing.T) {
	t.Parallel()

	results := memory.NewResultQueue()
	store := memstore.NewRecordStore()
	s := New(results, store, nil, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.NoError(t, results.Push(search.Record{Source: "https://a.test", Payload: "[]"}))
	require.NoError(t, results.Push(search.Record{Source: "https://b.test", Payload: "Timeout", Failed: true}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, results.WaitDrained(ctx))
	results.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not exit after close")
	}

	require.Equal(t, []search.Record{
		{Source: "https://a.test", Payload: "[]"},
		{Source: "https://b.test", Payload: "Timeout", Failed: true},
	}, store.Records())
	require.Equal(t, 2, s.Written())
	require.Equal(t, 1, s.Failures())
}

func TestSinkAcksRecordsWhenWriteFails(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	results := memory.NewResultQueue()
	writer := &failingWriter{}
	s := New(results, writer, nil, zap.New(core))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.NoError(t, results.Push(search.Record{Source: "https://a.test"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, results.WaitDrained(ctx))
	results.Close()
	require.NoError(t, <-done)

	require.Equal(t, 0, s.Written())
	entries := logs.FilterMessage("write record failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "https://a.test", entries[0].ContextMap()["url"])
}

func TestSinkReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	results := memory.NewResultQueue()
	s := New(results, memstore.NewRecordStore(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Run(ctx), context.Canceled)
}
