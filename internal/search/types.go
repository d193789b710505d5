package search

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OutcomeKind tags the variant carried by an Outcome.
type OutcomeKind string

// Outcome kinds produced by a Fetcher.
const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeHTTPError    OutcomeKind = "http_error"
	OutcomeNetworkError OutcomeKind = "network_error"
)

// NetworkErrorKind names a transport-level failure. The name is what ends up
// in the output file, so values are stable identifiers rather than messages.
type NetworkErrorKind string

// Transport failure kinds recognised by fetchers.
const (
	ErrKindTimeout           NetworkErrorKind = "Timeout"
	ErrKindConnectionRefused NetworkErrorKind = "ConnectionRefused"
	ErrKindDNS               NetworkErrorKind = "DNSError"
	ErrKindSSL               NetworkErrorKind = "SSLError"
	ErrKindTooManyRedirects  NetworkErrorKind = "TooManyRedirects"
	ErrKindInvalidURL        NetworkErrorKind = "InvalidURL"
	ErrKindRobotsBlocked     NetworkErrorKind = "RobotsBlocked"
	ErrKindCanceled          NetworkErrorKind = "Canceled"
	ErrKindConnection        NetworkErrorKind = "ConnectionError"
)

// FetchRequest captures everything needed to fetch one page.
type FetchRequest struct {
	URL     string
	Timeout time.Duration
	Headers http.Header
}

// Outcome is the classified result of a fetch. Exactly one of Body,
// StatusCode (for HTTP failures) or ErrorKind is meaningful, selected by Kind.
type Outcome struct {
	Kind       OutcomeKind
	URL        string
	FinalURL   string
	StatusCode int
	Body       string
	ErrorKind  NetworkErrorKind
	Duration   time.Duration
	Bytes      int
}

// Success builds a successful Outcome.
func Success(url string, status int, body string) Outcome {
	return Outcome{Kind: OutcomeSuccess, URL: url, StatusCode: status, Body: body, Bytes: len(body)}
}

// HTTPError builds an Outcome for a response with status >= 400.
func HTTPError(url string, status int) Outcome {
	return Outcome{Kind: OutcomeHTTPError, URL: url, StatusCode: status}
}

// NetworkError builds an Outcome for a transport failure.
func NetworkError(url string, kind NetworkErrorKind) Outcome {
	return Outcome{Kind: OutcomeNetworkError, URL: url, ErrorKind: kind}
}

// OK reports whether the outcome carries a page body.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Describe renders a failed outcome as the short string written to the
// output file. It returns an empty string for successes.
func (o Outcome) Describe() string {
	switch o.Kind {
	case OutcomeHTTPError:
		return "ERROR, HTTP " + strconv.Itoa(o.StatusCode)
	case OutcomeNetworkError:
		if o.ErrorKind == "" {
			return string(ErrKindConnection)
		}
		return string(o.ErrorKind)
	default:
		return ""
	}
}

// Match is a single matched word with its occurrence count.
type Match struct {
	Word  string
	Count int
}

// MatchResult is ranked by descending count, ties kept in first-seen order.
type MatchResult []Match

// String renders the result as a list of (word, count) tuples, e.g.
// [('sasas', 2), ('sails', 1)].
func (m MatchResult) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, match := range m {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "('%s', %d)", match.Word, match.Count)
	}
	b.WriteByte(']')
	return b.String()
}

// Record is the unit placed on the result queue and persisted by the sink.
type Record struct {
	Source  string
	Payload string
	// Failed marks records whose payload is an error description.
	Failed bool
}

// Line formats the record as written to the output file, without newline.
func (r Record) Line() string {
	return r.Source + ": " + r.Payload
}
