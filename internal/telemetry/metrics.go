package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the recommendation engine.
type Metrics struct {
	// Cache performance, labeled by artifact kind and tier.
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheLatency     *prometheus.HistogramVec

	// Resilience.
	BreakerTransitionsTotal *prometheus.CounterVec
	RateLimitRejectedTotal  *prometheus.CounterVec

	// Pipeline.
	SearchDuration     *prometheus.HistogramVec
	EventsDroppedTotal prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics.
//
// Uses sync.Once so repeated construction (tests, multiple registries)
// never panics with duplicate collector registration. All metrics carry
// the "patternd_" prefix.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "patternd_cache_hits_total",
					Help: "Total cache hits by artifact kind and tier",
				},
				[]string{"kind", "tier"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "patternd_cache_misses_total",
					Help: "Total cache misses by artifact kind and tier",
				},
				[]string{"kind", "tier"},
			),
			CacheLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "patternd_cache_op_duration_seconds",
					Help:    "Duration of cache operations in seconds",
					Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~400ms
				},
				[]string{"kind", "tier"},
			),
			BreakerTransitionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "patternd_breaker_transitions_total",
					Help: "Circuit breaker state transitions by dependency and new state",
				},
				[]string{"dependency", "state"},
			),
			RateLimitRejectedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "patternd_ratelimit_rejected_total",
					Help: "Requests rejected by the rate limiter, by key and reason",
				},
				[]string{"key", "reason"},
			),
			SearchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "patternd_search_duration_seconds",
					Help:    "End-to-end search duration in seconds by outcome",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
				},
				[]string{"outcome"},
			),
			EventsDroppedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "patternd_telemetry_events_dropped_total",
					Help: "Telemetry events dropped because the queue was full",
				},
			),
		}
	})
	return globalMetrics
}

// RecordCacheAccess records a cache read or write outcome.
func (m *Metrics) RecordCacheAccess(kind, tier string, hit bool, latency time.Duration) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(kind, tier).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(kind, tier).Inc()
	}
	m.CacheLatency.WithLabelValues(kind, tier).Observe(latency.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(dependency, state string) {
	m.BreakerTransitionsTotal.WithLabelValues(dependency, state).Inc()
}

// RecordRateLimitRejection records a rejected admission attempt.
func (m *Metrics) RecordRateLimitRejection(key, reason string) {
	m.RateLimitRejectedTotal.WithLabelValues(key, reason).Inc()
}

// RecordSearch records one end-to-end search.
func (m *Metrics) RecordSearch(outcome string, duration time.Duration) {
	m.SearchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDropped counts an event lost to queue pressure.
func (m *Metrics) RecordDropped() {
	m.EventsDroppedTotal.Inc()
}
