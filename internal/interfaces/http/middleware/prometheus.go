package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics bundles the prometheus collectors instrumenting the API
// surface itself, separate from the domain metric collector.
type HTTPMetrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	ReportThrottled    prometheus.Counter
	WebsocketClients   prometheus.Gauge
}

func NewHTTPMetrics(registry *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "observability_http_requests_total",
			Help: "Total number of API HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "observability_http_request_duration_seconds",
			Help:    "API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ReportThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "observability_report_requests_throttled_total",
			Help: "Total number of report requests dropped by the rate limiter.",
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "observability_websocket_clients",
			Help: "Currently connected WebSocket clients.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.ReportThrottled,
		m.WebsocketClients,
	)

	return m
}

// Middleware records request counts and latencies per normalized route.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// normalizeRoute collapses paths to a bounded label set.
func normalizeRoute(path string) string {
	switch {
	case path == "/ws":
		return "/ws"
	case path == "/healthz" || path == "/readyz":
		return "/probes"
	case path == "/metrics":
		return "/metrics"
	case path == "/api/v1/reports" || strings.HasPrefix(path, "/api/v1/reports/"):
		return "/api/v1/reports/*"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}
