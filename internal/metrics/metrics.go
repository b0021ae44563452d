// Package metrics provides Prometheus instrumentation for the forecast API.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hourly_forecast"

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ForecastsTotal counts forecasts by kind (partial, seeded, complete).
	ForecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Total forecasts computed by kind.",
		},
		[]string{"kind"},
	)

	// PredictedHoursTotal counts hours synthesized by the recurrence.
	PredictedHoursTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predicted_hours_total",
		Help:      "Total hourly values produced by the forecast recurrence.",
	})

	// ComputeDuration observes engine computation time by operation.
	ComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Forecast engine computation time in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	// BacktestMeanError holds the latest backtest mean relative error per cutoff hour.
	BacktestMeanError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backtest_mean_error",
			Help:      "Latest backtest mean relative error by cutoff hour.",
		},
		[]string{"cutoff"},
	)

	// HistoryRecords tracks the number of days in the current history snapshot.
	HistoryRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_records",
		Help:      "Number of daily records in the current history snapshot.",
	})

	// HistoryImportsTotal counts history imports by result.
	HistoryImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_imports_total",
			Help:      "Total history imports by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ForecastsTotal,
		PredictedHoursTotal,
		ComputeDuration,
		BacktestMeanError,
		HistoryRecords,
		HistoryImportsTotal,
	)
}

// StartForecastTimer starts a timer for an engine operation; call ObserveDuration when done.
func StartForecastTimer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(ComputeDuration.WithLabelValues(operation))
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern keeps label cardinality bounded
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
