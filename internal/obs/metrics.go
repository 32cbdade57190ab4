package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	moodleCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodle_ws_calls_total",
			Help: "Moodle web-service calls by function and outcome.",
		},
		[]string{"function", "outcome"},
	)

	moodleCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodle_ws_call_duration_seconds",
			Help:    "Moodle web-service call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	fallbackAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodle_fallback_attempts_total",
			Help: "Fallback strategy attempts by operation, strategy and outcome.",
		},
		[]string{"operation", "strategy", "outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers every collector in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			moodleCallsTotal,
			moodleCallDuration,
			fallbackAttemptsTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeException = "exception"
	OutcomeSkipped   = "skipped"
)

// ObserveMoodleCall records one web-service call.
func ObserveMoodleCall(function, outcome string, took time.Duration) {
	moodleCallsTotal.WithLabelValues(function, outcome).Inc()
	moodleCallDuration.WithLabelValues(function).Observe(took.Seconds())
}

// ObserveFallback records one strategy attempt of a fallback chain.
func ObserveFallback(operation, strategy, outcome string) {
	fallbackAttemptsTotal.WithLabelValues(operation, strategy, outcome).Inc()
}

// ObserveHTTP records one served request. path must be the route pattern, not
// the raw URL, to keep label cardinality bounded.
func ObserveHTTP(method, path string, status int, took time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	httpRequestDuration.WithLabelValues(method, path, code).Observe(took.Seconds())
}
