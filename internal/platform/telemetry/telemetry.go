// Package telemetry is the platform's Prometheus wiring: an HTTP
// middleware every service's router mounts, plus the domain counters named
// throughout the saga (outbox publishes, inbox dedupes, invariant
// violations, retries, circuit trips). Every metric in the module is
// defined here, with promauto on the default registry; service packages
// register none of their own.
package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status_code"},
	)

	HTTPRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
		[]string{"service"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Total number of outbox rows successfully published",
		},
		[]string{"service"},
	)

	OutboxRetriedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_retried_total",
			Help: "Total number of outbox rows released back to pending for retry",
		},
		[]string{"service"},
	)

	OutboxDeadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dead_total",
			Help: "Total number of outbox rows that exhausted their publish attempts",
		},
		[]string{"service"},
	)

	InboxDuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_duplicates_total",
			Help: "Total number of inbound events recognized as already processed",
		},
		[]string{"service"},
	)

	InvariantViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invariant_violations_total",
			Help: "Total number of rejected state transitions or ledger imbalances",
		},
		[]string{"service", "kind"},
	)

	ProviderRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Total number of provider call retries",
		},
		[]string{"outcome"},
	)

	CircuitTripsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_circuit_trips_total",
			Help: "Total number of times the provider circuit breaker opened",
		},
	)
)

// Middleware records request counts, durations, and in-flight gauges for
// the named service, following the teacher's gin middleware idiom.
func Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		HTTPRequestsInFlight.WithLabelValues(service).Inc()
		defer HTTPRequestsInFlight.WithLabelValues(service).Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		HTTPDuration.WithLabelValues(service, c.Request.Method, endpoint, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(service, c.Request.Method, endpoint, status).Inc()
	}
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
