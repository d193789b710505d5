// Package api hosts the optional status server that runs alongside a search
// run. Routes:
//   - GET /healthz and /readyz for health checks; readyz reports 503 until the work
//     queue has been seeded.
//   - GET /metrics for Prometheus scraping.
//   - GET /progress for a JSON snapshot of queue and writer counters.
package api
