// Package metrics exposes Prometheus collectors for a search run.
package metrics

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// Collector owns the run's collectors. A nil *Collector is a valid no-op, so
// components can be constructed without metrics in tests.
type Collector struct {
	fetchTotal          *prometheus.CounterVec
	fetchBytesTotal     *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	recordsWrittenTotal *prometheus.CounterVec
	activeWorkers       prometheus.Gauge
	queuePending        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitDelay      *prometheus.HistogramVec
}

// NewCollector registers the collectors against reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitesearch_fetch_total",
			Help: "Page fetches partitioned by site and outcome.",
		}, []string{"site", "outcome"}),
		fetchBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitesearch_fetch_bytes_total",
			Help: "Bytes downloaded per site.",
		}, []string{"site"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitesearch_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"outcome"}),
		recordsWrittenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitesearch_records_written_total",
			Help: "Records handled by the output sink, labeled by result.",
		}, []string{"result"}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitesearch_active_workers",
			Help: "Number of workers currently running.",
		}),
		queuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitesearch_queue_pending",
			Help: "URLs waiting in the work queue.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitesearch_http_requests_total",
			Help: "Status server requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitesearch_http_request_duration_seconds",
			Help:    "Status server request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
		rateLimitDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitesearch_rate_limit_delay_seconds",
			Help:    "Time workers spent waiting on the per-host rate limiter.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"site"}),
	}
	for _, collector := range []prometheus.Collector{
		c.fetchTotal,
		c.fetchBytesTotal,
		c.fetchDuration,
		c.recordsWrittenTotal,
		c.activeWorkers,
		c.queuePending,
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.rateLimitDelay,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return c, nil
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// outcomeLabel keeps label cardinality bounded: HTTP errors collapse to their
// status class, network errors to their kind.
func outcomeLabel(out search.Outcome) string {
	switch out.Kind {
	case search.OutcomeSuccess:
		return "success"
	case search.OutcomeHTTPError:
		return "http_" + strconv.Itoa(out.StatusCode/100) + "xx"
	case search.OutcomeNetworkError:
		return strings.ToLower(string(out.ErrorKind))
	default:
		return "unknown"
	}
}

// ObserveFetch records one classified fetch.
func (c *Collector) ObserveFetch(out search.Outcome) {
	if c == nil {
		return
	}
	site := SanitizeSite(out.URL)
	label := outcomeLabel(out)
	c.fetchTotal.WithLabelValues(site, label).Inc()
	if out.Bytes > 0 {
		c.fetchBytesTotal.WithLabelValues(site).Add(float64(out.Bytes))
	}
	if out.Duration > 0 {
		c.fetchDuration.WithLabelValues(label).Observe(out.Duration.Seconds())
	}
}

// ObserveRecordWritten counts a record handled by the sink.
func (c *Collector) ObserveRecordWritten(record search.Record, writeErr error) {
	if c == nil {
		return
	}
	result := "match"
	switch {
	case writeErr != nil:
		result = "write_error"
	case record.Failed:
		result = "fetch_error"
	}
	c.recordsWrittenTotal.WithLabelValues(result).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func (c *Collector) IncActiveWorkers() {
	if c == nil {
		return
	}
	c.activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func (c *Collector) DecActiveWorkers() {
	if c == nil {
		return
	}
	c.activeWorkers.Dec()
}

// SetQueuePending records the work queue backlog.
func (c *Collector) SetQueuePending(n int) {
	if c == nil {
		return
	}
	c.queuePending.Set(float64(n))
}

// ObserveHTTPRequest increments the status server request metrics.
func (c *Collector) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting for a host's rate limiter.
func (c *Collector) ObserveRateLimitDelay(rawURL string, waited time.Duration) {
	if c == nil || waited <= 0 {
		return
	}
	c.rateLimitDelay.WithLabelValues(SanitizeSite(rawURL)).Observe(waited.Seconds())
}
