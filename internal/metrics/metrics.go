// Package metrics provides Prometheus metrics for the prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fightpick"

// Outcome label values
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds every collector the service exports
type Metrics struct {
	gatherer prometheus.Gatherer

	formActions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	submitDuration prometheus.Histogram
	resultsFetches *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide metrics on a private registry that also
// carries the Go runtime and process collectors.
func Default() *Metrics {
	defaultOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		defaultMetrics = New(reg)
	})
	return defaultMetrics
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	auto := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		formActions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_actions_total",
			Help:      "Prediction form actions by action and outcome",
		}, []string{"action", "outcome"}),
		submissions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Prediction submissions by outcome",
		}, []string{"outcome"}),
		submitDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Time spent sending a prediction to the store",
			Buckets:   prometheus.DefBuckets,
		}),
		resultsFetches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_fetch_total",
			Help:      "Results page loads by outcome",
		}, []string{"outcome"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint, method and status code",
		}, []string{"endpoint", "method", "code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),
		activeSessions: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Visitor sessions currently held in memory",
		}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordFormAction(action, outcome string) {
	m.formActions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) RecordSubmission(outcome string, took time.Duration) {
	m.submissions.WithLabelValues(outcome).Inc()
	m.submitDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordResultsFetch(outcome string) {
	m.resultsFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Middleware records request count and latency for endpoint
func (m *Metrics) Middleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.httpRequests.WithLabelValues(endpoint, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		m.httpDuration.WithLabelValues(endpoint, r.Method).Observe(time.Since(start).Seconds())
	})
}

// responseWriter captures the status code written by a handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events streaming through the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
