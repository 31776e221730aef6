// Package metrics exposes the Prometheus registry shared by the relay and the
// offline cache worker. Metrics are defined in their own packages (relay,
// cache, worker) with promauto.With(Registry).
//
// This package documents the catalogue and serves it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the relay, cache and worker packages register
// their metrics with. It is the default registerer, so Gatherer sees them.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Relay Metrics (pkg/relay):
//   - relay_requests_total{status} (Counter): Responses by HTTP status returned to the client
//   - relay_request_duration_seconds (Histogram): End-to-end handling time
//   - relay_errors_total{class} (Counter): Error responses by class
//     (configuration, validation, upstream, malformed_response, internal)
//   - relay_upstream_responses_total{status} (Counter): Upstream responses by HTTP status
//   - relay_upstream_duration_seconds (Histogram): Upstream round trip time
//
// Cache Metrics (pkg/cache):
//   - offline_cache_hits_total{backend} (Counter): Lookups answered from a generation
//   - offline_cache_misses_total{backend} (Counter): Lookups found in no generation
//   - offline_cache_writes_total{backend} (Counter): Entries written
//   - offline_cache_errors_total{backend, operation} (Counter): Storage operation errors
//
// Worker Metrics (pkg/worker):
//   - offline_worker_fetches_total{source} (Counter): Fetches by source (cache, network, bypass)
//   - offline_worker_installs_total{result} (Counter): Install attempts by result
//   - offline_worker_install_duration_seconds (Histogram): Time to pre-cache the manifest
//   - offline_worker_generations_pruned_total (Counter): Stale generations deleted on activate
//   - offline_worker_cache_write_failures_total (Counter): Lazy cache writes that failed
//
// Example Prometheus Queries:
//
//   # Offline hit rate
//   sum(rate(offline_worker_fetches_total{source="cache"}[5m])) /
//   sum(rate(offline_worker_fetches_total{source=~"cache|network"}[5m]))
//
//   # Upstream error rate
//   sum(rate(relay_errors_total{class="upstream"}[5m]))
//
//   # P95 relay latency
//   histogram_quantile(0.95, rate(relay_request_duration_seconds_bucket[5m]))
