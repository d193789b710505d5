package search

import "context"

// Fetcher retrieves a page and classifies the result. Implementations never
// surface raw transport errors; they are folded into the Outcome.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) Outcome
}

// Matcher scans text and returns the ranked matches.
type Matcher interface {
	Match(text string) MatchResult
}

// Source supplies the batch of URLs to search.
type Source interface {
	ListURLs(ctx context.Context) ([]string, error)
}

// RecordWriter persists records for the output sink. Implementations are
// driven by a single goroutine and need not be safe for concurrent use.
type RecordWriter interface {
	WriteRecord(ctx context.Context, record Record) error
	Close() error
}

// WorkQueue hands out URLs to workers. Pop returning false means the batch is
// exhausted. Every successful Pop must be followed by exactly one Ack.
type WorkQueue interface {
	Pop() (string, bool)
	Ack() error
}

// ResultQueue accepts records produced by workers.
type ResultQueue interface {
	Push(record Record) error
}
