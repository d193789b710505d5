// Package main hosts the sitesearch batch entrypoint.
//
// A run fetches a list of sites, scans every page for words matching the
// configured pattern and writes one "<url>: <top matches or error>" line per
// site to results.txt (or to Postgres when output.kind is "postgres").
//
// Architecture overview:
//   - Source: internal/source reads the URL list through the same Colly fetcher
//     used for pages, or takes a static list from source.urls.
//   - Queues: internal/queue/memory holds a work queue of URLs and a result
//     queue of records. Both track in-flight items so the run knows when every
//     URL has been fetched and every record written.
//   - Workers: search.workers goroutines (default 20) pop URLs, fetch with a
//     per-request timeout, match and push one record per URL.
//   - Sink: a single goroutine writes records in arrival order.
//   - Status: when server.addr is set, a chi server exposes /healthz, /readyz,
//     /metrics and /progress while the run is in progress.
//
// Quick checklist:
//   - Configure env vars: SITESEARCH_SEARCH_WORKERS, SITESEARCH_HTTP_TIMEOUT_MS,
//     SITESEARCH_OUTPUT_PATH, SITESEARCH_SOURCE_URL, SITESEARCH_SERVER_ADDR.
//   - Run locally: go run ./cmd/sitesearch -config config.yaml
//   - Exit status is 1 when the configuration, the output or the URL list is
//     unusable, and 0 otherwise; per-site failures are reported in the output.
package main
