// Package metrics exposes the Prometheus collectors of the invoice backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notion_invoice"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "path"},
	)

	notionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notion",
			Name:      "requests_total",
			Help:      "Total number of Notion API calls by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	notionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notion",
			Name:      "request_duration_seconds",
			Help:      "Duration of Notion API calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"endpoint"},
	)

	retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Retry-wrapped attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	errorsByKind = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "errors_total",
			Help:      "Classified gateway failures by kind.",
		},
		[]string{"kind"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Invoice cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		notionRequests,
		notionDuration,
		retryAttempts,
		errorsByKind,
		cacheLookups,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordNotionRequest records one outbound Notion call. status is 0 when no
// response was received.
func RecordNotionRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	notionRequests.WithLabelValues(endpoint, label).Inc()
	notionDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Retry outcomes
const (
	OutcomeSuccess = "success"
	OutcomeRetried = "retried"
	OutcomeGaveUp  = "gave_up"
)

// RecordRetry records the outcome of one retry-wrapped attempt.
func RecordRetry(operation, outcome string) {
	retryAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordGatewayError counts a classified failure.
func RecordGatewayError(kind string) {
	errorsByKind.WithLabelValues(kind).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}
