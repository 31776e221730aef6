package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/gemini-relay/pkg/metrics"
)

var factory = promauto.With(metrics.Registry)

// Prometheus metrics for relay operations.
var (
	relayRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Total relay requests by response status",
	}, []string{"status"})

	relayRequestDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_request_duration_seconds",
		Help:    "Relay request duration in seconds, upstream call included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	relayErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "Total relay errors by class",
	}, []string{"class"})

	upstreamResponsesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_upstream_responses_total",
		Help: "Total upstream responses by status",
	}, []string{"status"})

	upstreamDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_upstream_duration_seconds",
		Help:    "Upstream generateContent call duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)
