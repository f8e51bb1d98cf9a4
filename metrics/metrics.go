// Package metrics provides Prometheus metrics for the MediaWiki MCP server.
// It tracks tool calls, wiki API traffic, memoization and traversal behaviour.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "mediawiki_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures tool call latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Tool call latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing tool calls
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of tool calls currently being processed",
	}, []string{"tool"})

	// CacheHits counts memoized results served without a request
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_hits_total",
		Help:      "Memoization hits by operation",
	}, []string{"operation"})

	// CacheMisses counts memoized operations that had to be computed
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_misses_total",
		Help:      "Memoization misses by operation",
	}, []string{"operation"})

	// CacheSize tracks current memo entry count
	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "cache_entries",
		Help:      "Current number of memoized results",
	})

	// APILatency measures wiki API call latency by action
	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "wiki_api_latency_seconds",
		Help:      "Wiki API call latency by action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// APIRequestsTotal counts wiki API requests
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_requests_total",
		Help:      "Total wiki API requests by action and status",
	}, []string{"action", "status"})

	// APIErrors counts wiki API error envelopes by code
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_errors_total",
		Help:      "Wiki API errors by action and error code",
	}, []string{"action", "error_code"})

	// APIRetries counts transport-level retries
	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_retries_total",
		Help:      "Wiki API retry count by action",
	}, []string{"action"})

	// RateLimitWaits counts requests delayed by the pacing limiter
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Requests that waited for the minimum request interval",
	})

	// RedirectHops counts redirects followed while resolving pages
	RedirectHops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "redirect_hops_total",
		Help:      "Redirects followed during page resolution",
	})

	// ContinuationPages counts continued query requests by response shape
	ContinuationPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "continuation_pages_total",
		Help:      "Requests issued by continued queries by result shape",
	}, []string{"shape"})

	// CategoryRetries counts retried category fetches during tree building
	CategoryRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "category_tree_retries_total",
		Help:      "Category page fetches retried while building a category tree",
	})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})
)

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records a wiki API call
func RecordAPICall(action string, duration float64, success bool, errorCode string) {
	status := "success"
	if !success {
		status = "error"
	}
	APIRequestsTotal.WithLabelValues(action, status).Inc()
	APILatency.WithLabelValues(action).Observe(duration)
	if errorCode != "" {
		APIErrors.WithLabelValues(action, errorCode).Inc()
	}
}

// RecordCacheAccess records a memo hit or miss for an operation
func RecordCacheAccess(operation string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(operation).Inc()
	} else {
		CacheMisses.WithLabelValues(operation).Inc()
	}
}

// SetCacheSize updates the current memo size gauge
func SetCacheSize(size int) {
	CacheSize.Set(float64(size))
}
