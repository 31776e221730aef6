package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/gemini-relay/pkg/metrics"
)

var factory = promauto.With(metrics.Registry)

// Prometheus metrics for the worker lifecycle.
var (
	fetchesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_worker_fetches_total",
		Help: "Intercepted fetches by source",
	}, []string{"source"}) // "cache", "network", "bypass"

	installsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_worker_installs_total",
		Help: "Install transitions by result",
	}, []string{"result"})

	installDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "offline_worker_install_duration_seconds",
		Help:    "Install duration in seconds, manifest fetch included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	generationsPrunedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "offline_worker_generations_pruned_total",
		Help: "Stale cache generations deleted on activate",
	})

	cacheWriteFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "offline_worker_cache_write_failures_total",
		Help: "Best-effort cache writes that failed during fetch",
	})
)
