// Package observability exposes Prometheus metrics and health endpoints
// for the careline service.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careline_turns_total",
			Help: "Total number of conversation turns processed",
		},
		[]string{"channel", "stage"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careline_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	urgentEscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "careline_urgent_escalations_total",
			Help: "Total number of sessions escalated to urgent care",
		},
	)

	collaboratorFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careline_collaborator_failures_total",
			Help: "Total number of degraded external collaborator calls",
		},
		[]string{"collaborator"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	initOnce sync.Once
)

// InitMetrics registers the Prometheus metrics.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			turnsTotal,
			turnDuration,
			urgentEscalationsTotal,
			collaboratorFailuresTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTurn records a processed conversation turn.
func RecordTurn(channel, stage string, duration time.Duration) {
	turnsTotal.WithLabelValues(channel, stage).Inc()
	turnDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordUrgentEscalation records a session redirected to urgent care.
func RecordUrgentEscalation() {
	urgentEscalationsTotal.Inc()
}

// RecordCollaboratorFailure records a degraded external call.
func RecordCollaboratorFailure(collaborator string) {
	collaboratorFailuresTotal.WithLabelValues(collaborator).Inc()
}

// RecordHTTPRequest records webhook request metrics.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
