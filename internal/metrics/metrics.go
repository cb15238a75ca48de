// Package metrics exposes Prometheus collectors for the ping service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pingAttemptsTotal        *prometheus.CounterVec
	dispatchDurationSeconds  *prometheus.HistogramVec
	dispatchesTotal          *prometheus.CounterVec
	quotaRejectionsTotal     prometheus.Counter
	contentGateSkipsTotal    prometheus.Counter
	persistenceFailuresTotal *prometheus.CounterVec
	queueDepth               prometheus.Gauge
	activeWorkers            prometheus.Gauge
	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pingAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ping_attempts_total",
				Help: "Total target invocations, labeled by category, target and outcome code.",
			},
			[]string{"category", "target", "code"},
		)

		dispatchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ping_dispatch_duration_seconds",
				Help:    "Histogram of whole-dispatch latencies, labeled by mode (sync or async).",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		)

		dispatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ping_dispatches_total",
				Help: "Total dispatches processed, labeled by status.",
			},
			[]string{"status"},
		)

		quotaRejectionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ping_quota_rejections_total",
				Help: "Total dispatches rejected because the daily quota was exhausted.",
			},
		)

		contentGateSkipsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ping_content_gate_skips_total",
				Help: "Total dispatches skipped because the content fingerprint was unchanged.",
			},
		)

		persistenceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ping_persistence_failures_total",
				Help: "Total post-dispatch persistence failures, labeled by store.",
			},
			[]string{"store"},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ping_queue_depth",
				Help: "Number of dispatch commands waiting in the queue.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ping_active_workers",
				Help: "Number of workers currently executing a dispatch.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePingAttempt records one target invocation outcome.
func ObservePingAttempt(category, target, code string) {
	pingAttemptsTotal.WithLabelValues(category, target, code).Inc()
}

// ObserveDispatch records a completed dispatch and its duration.
func ObserveDispatch(mode, status string, duration time.Duration) {
	dispatchesTotal.WithLabelValues(status).Inc()
	dispatchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveQuotaRejection increments the quota rejection counter.
func ObserveQuotaRejection() {
	quotaRejectionsTotal.Inc()
}

// ObserveContentGateSkip increments the unchanged-content skip counter.
func ObserveContentGateSkip() {
	contentGateSkipsTotal.Inc()
}

// ObservePersistenceFailure records a failed history or URL write.
func ObservePersistenceFailure(store string) {
	persistenceFailuresTotal.WithLabelValues(store).Inc()
}

// SetQueueDepth reports the current queue backlog.
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
