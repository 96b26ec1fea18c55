// Package metrics holds the agent's Prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_http_requests_total",
			Help: "Total number of local API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proctor_http_request_duration_seconds",
			Help:    "Duration of local API requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	PhaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_session_transitions_total",
			Help: "Session phase transitions",
		},
		[]string{"from", "to"},
	)

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_submissions_total",
			Help: "Submission attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	IntegritySignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctor_integrity_signals_total",
			Help: "Integrity signals acted upon",
		},
		[]string{"verdict"},
	)

	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proctor_backend_request_duration_seconds",
			Help:    "Duration of assessment backend calls",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"operation", "outcome"},
	)

	RemainingSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proctor_session_remaining_seconds",
			Help: "Remaining seconds of the in-progress session",
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			PhaseTransitions,
			Submissions,
			IntegritySignals,
			BackendDuration,
			RemainingSeconds,
		)
	})
}

// ObserveBackend records the duration of one backend call.
func ObserveBackend(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BackendDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
