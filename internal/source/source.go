// Package source provides the collaborators that supply the batch of URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// DefaultListURL is the remote list fetched when no other source is configured.
const DefaultListURL = "https://s3.amazonaws.com/fieldlens-public/urls.txt"

// ErrListUnavailable is returned when the URL list cannot be retrieved.
var ErrListUnavailable = errors.New("url list unavailable")

// Format describes how list lines are turned into URLs.
type Format struct {
	// Delimiter separates fields; lines without it are skipped.
	Delimiter string
	// Field is the zero-based field holding the host or URL.
	Field int
	// Scheme is prefixed to every parsed entry, e.g. "https://".
	Scheme string
}

// DefaultFormat matches a CSV list with a header row and quoted hosts in the
// second column, e.g. `1,"google.com"`.
func DefaultFormat() Format {
	return Format{Delimiter: ",", Field: 1, Scheme: "https://"}
}

// HTTPSource downloads a list resource through a search.Fetcher.
type HTTPSource struct {
	fetcher search.Fetcher
	request search.FetchRequest
	format  Format
}

// NewHTTPSource builds a source that fetches request.URL.
func NewHTTPSource(fetcher search.Fetcher, request search.FetchRequest, format Format) *HTTPSource {
	if request.URL == "" {
		request.URL = DefaultListURL
	}
	if format.Delimiter == "" {
		format.Delimiter = DefaultFormat().Delimiter
	}
	return &HTTPSource{fetcher: fetcher, request: request, format: format}
}

// ListURLs fetches and parses the list. Any non-success outcome is an error.
func (s *HTTPSource) ListURLs(ctx context.Context) ([]string, error) {
	out := s.fetcher.Fetch(ctx, s.request)
	if !out.OK() {
		return nil, fmt.Errorf("%w: %s from %s", ErrListUnavailable, out.Describe(), s.request.URL)
	}
	return Parse(out.Body, s.format), nil
}

// Parse skips the header line and extracts one URL from every remaining line
// that contains the delimiter. Lines that lack the delimiter or the field are
// skipped.
func Parse(body string, format Format) []string {
	lines := strings.Split(body, "\n")
	if len(lines) <= 1 {
		return []string{}
	}
	urls := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if !strings.Contains(line, format.Delimiter) {
			continue
		}
		fields := strings.Split(line, format.Delimiter)
		if format.Field < 0 || format.Field >= len(fields) {
			continue
		}
		// An empty field still yields an entry; the fetcher reports it as
		// InvalidURL so the line is accounted for in the output.
		urls = append(urls, format.Scheme+unquote(strings.TrimSpace(fields[format.Field])))
	}
	return urls
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == s[len(s)-1] && (s[0] == '"' || s[0] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// StaticSource returns a fixed list.
type StaticSource []string

// ListURLs returns a copy of the list.
func (s StaticSource) ListURLs(context.Context) ([]string, error) {
	return append([]string{}, s...), nil
}
