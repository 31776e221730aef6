package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/gemini-relay/pkg/metrics"
)

var factory = promauto.With(metrics.Registry)

var (
	// CacheHits tracks lookups answered from storage.
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_hits_total",
			Help: "Total number of offline cache hits",
		},
		[]string{"backend"}, // "redis", "memory"
	)

	// CacheMisses tracks lookups that found nothing in any generation.
	CacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_misses_total",
			Help: "Total number of offline cache misses",
		},
		[]string{"backend"},
	)

	// CacheWrites tracks stored entries.
	CacheWrites = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_writes_total",
			Help: "Total number of entries written to the offline cache",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks storage operation errors.
	CacheErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_errors_total",
			Help: "Total number of offline cache operation errors",
		},
		[]string{"backend", "operation"}, // "open", "keys", "match", "put", "delete"
	)
)
