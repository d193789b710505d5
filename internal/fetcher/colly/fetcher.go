// Package collyfetcher implements search.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// DefaultTimeout bounds a fetch when neither the request nor Config sets one.
const DefaultTimeout = 3 * time.Second

const maxRedirects = 10

var errTooManyRedirects = errors.New("stopped after 10 redirects")

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// Headers are sent with every request; per-request headers are added on top.
	Headers http.Header
	// OnRobotsFallback is called when robots.txt could not be retrieved and
	// the fetch proceeds as if everything were allowed.
	OnRobotsFallback func(host string)
	// MaxBodySize caps the bytes read per response. Zero reads the whole body.
	MaxBodySize int
}

// Fetcher implements search.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Transport, timeout and redirect policy live on the
// base collector because clones share its HTTP backend.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.MaxBodySize(cfg.MaxBodySize))

	var transport http.RoundTripper = newHTTPTransport()
	if cfg.RespectRobots {
		transport = &robotsAwareTransport{base: transport, onFallback: cfg.OnRobotsFallback}
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)
	c.SetRedirectHandler(func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}
		return nil
	})

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET and classifies the result. It never
// returns a raw error: transport failures become NetworkError outcomes.
func (f *Fetcher) Fetch(ctx context.Context, request search.FetchRequest) search.Outcome {
	if !validURL(request.URL) {
		return search.NetworkError(request.URL, search.ErrKindInvalidURL)
	}
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result   search.Outcome
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(fetchCtx, request, start, &result, &fetchErr)

	if err := f.runCollector(fetchCtx, collector, request.URL, &fetchErr); err != nil {
		out := search.NetworkError(request.URL, Classify(err))
		out.Duration = time.Since(start)
		return out
	}
	if result.Kind == "" {
		out := search.NetworkError(request.URL, search.ErrKindConnection)
		out.Duration = time.Since(start)
		return out
	}
	return result
}

// validURL rejects what colly would fail on before any I/O happens.
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	request search.FetchRequest,
	start time.Time,
	result *search.Outcome,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	// The same URL may legitimately appear more than once in a batch.
	collector.AllowURLRevisit = true
	// Error statuses are classified here rather than surfaced as colly errors.
	collector.ParseHTTPErrorResponse = true

	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request search.FetchRequest,
	start time.Time,
	result *search.Outcome,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		var out search.Outcome
		if r.StatusCode >= http.StatusBadRequest {
			out = search.HTTPError(request.URL, r.StatusCode)
		} else {
			out = search.Success(request.URL, r.StatusCode, string(r.Body))
		}
		if r.Request != nil && r.Request.URL != nil {
			out.FinalURL = r.Request.URL.String()
		}
		out.Bytes = len(r.Body)
		out.Duration = time.Since(start)
		*result = out
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(request search.FetchRequest, r *colly.Request) {
	for _, headers := range []http.Header{f.cfg.Headers, request.Headers} {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
