// Package metrics provides Prometheus metrics for the Databricks MCP server.
// It tracks tool calls, Databricks API traffic, backoff retries and the
// namespace cache.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace and subsystem for all metrics
const (
	Namespace = "databricks_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// APIRequestsTotal counts Databricks API requests by endpoint and status
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Total Databricks API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	// APILatency measures Databricks API call latency, backoff included
	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "api_latency_seconds",
		Help:      "Databricks API call latency by endpoint",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// APIErrors counts Databricks API failures by HTTP status code
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_errors_total",
		Help:      "Databricks API errors by endpoint and status code",
	}, []string{"endpoint", "status_code"})

	// APIRetries counts 429 backoff retries
	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_retries_total",
		Help:      "Rate-limit retries by endpoint",
	}, []string{"endpoint"})

	// SemaphoreWaits counts attempts that had to wait for a request slot
	SemaphoreWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "semaphore_waits_total",
		Help:      "Attempts that waited for the request semaphore",
	})

	// SemaphoreInUse tracks request slots currently held
	SemaphoreInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "semaphore_in_use",
		Help:      "Request slots currently held",
	})

	// FanoutSize measures how many concurrent calls one aggregation issued
	FanoutSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "aggregation_fanout_size",
		Help:      "Number of concurrent calls per aggregation",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	// CacheHits counts namespace cache hits
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "namespace_cache_hits_total",
		Help:      "Namespace lookups served from a fresh snapshot",
	})

	// CacheMisses counts namespace cache misses
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "namespace_cache_misses_total",
		Help:      "Namespace lookups that triggered a refresh",
	})

	// CacheSize tracks the number of tables in the current snapshot
	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "namespace_tables",
		Help:      "Tables in the current namespace snapshot",
	})

	// NamespaceRefreshes counts namespace refreshes by outcome
	NamespaceRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "namespace_refreshes_total",
		Help:      "Namespace refreshes by status",
	}, []string{"status"})

	// NamespaceRefreshDuration measures full three-level walks
	NamespaceRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "namespace_refresh_duration_seconds",
		Help:      "Duration of a full namespace walk",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// HTTPRequestsTotal counts HTTP transport requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// HTTPRequestDuration measures HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	// ContentSize tracks encoded tool result sizes
	ContentSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "content_size_bytes",
		Help:      "Encoded tool content size in bytes",
		Buckets:   []float64{100, 1000, 10000, 50000, 100000, 250000, 500000, 1000000},
	}, []string{"tool"})
)

// RecordRequest records a completed request with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	RequestsTotal.WithLabelValues(tool, status(success)).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records a Databricks API call. statusCode is zero when no
// response was received.
func RecordAPICall(endpoint string, duration float64, success bool, statusCode int) {
	APIRequestsTotal.WithLabelValues(endpoint, status(success)).Inc()
	APILatency.WithLabelValues(endpoint).Observe(duration)
	if !success {
		code := "none"
		if statusCode != 0 {
			code = strconv.Itoa(statusCode)
		}
		APIErrors.WithLabelValues(endpoint, code).Inc()
	}
}

// RecordRetry records one rate-limit backoff
func RecordRetry(endpoint string) {
	APIRetries.WithLabelValues(endpoint).Inc()
}

// RecordCacheAccess records a cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// SetCacheSize updates the current cache size gauge
func SetCacheSize(size int64) {
	CacheSize.Set(float64(size))
}

// RecordRefresh records a namespace walk
func RecordRefresh(duration float64, success bool) {
	NamespaceRefreshes.WithLabelValues(status(success)).Inc()
	NamespaceRefreshDuration.Observe(duration)
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
