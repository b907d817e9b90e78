// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PageCacheRequests counts page cache lookups by route and result (hit/miss).
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_page_cache_requests_total",
		Help: "Page cache lookups by route and result",
	}, []string{"route", "result"})

	// PageCacheInvalidations counts invalidations by route and outcome (ok/error).
	PageCacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_page_cache_invalidations_total",
		Help: "Page cache invalidations by route and outcome",
	}, []string{"route", "outcome"})

	// ContentWrites counts successful write operations by entity and action.
	ContentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_content_writes_total",
		Help: "Successful write operations by entity and action",
	}, []string{"entity", "action"})

	// WebSocketConnectionsTotal is the gauge of live feed WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordCacheLookup counts one page cache lookup.
func RecordCacheLookup(route string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	PageCacheRequests.WithLabelValues(route, result).Inc()
}

// RecordInvalidation counts one page cache invalidation attempt.
func RecordInvalidation(route string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PageCacheInvalidations.WithLabelValues(route, outcome).Inc()
}
