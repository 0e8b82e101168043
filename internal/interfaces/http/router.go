package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/observability-core/internal/interfaces/http/handler"
	"github.com/dreschagin/observability-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/pkg/config"
)

// Router wires the API surface: health and metric endpoints, report
// creation, the status summary and the event WebSocket.
type Router struct {
	mux              *http.ServeMux
	apiHandler       *handler.ObservabilityHandler
	websocketHandler *handler.WebSocketHandler
	security         config.SecurityConfig
	registry         *prometheus.Registry
	httpMetrics      *middleware.HTTPMetrics
	logger           *logging.Logger
}

func NewRouter(
	apiHandler *handler.ObservabilityHandler,
	websocketHandler *handler.WebSocketHandler,
	security config.SecurityConfig,
	registry *prometheus.Registry,
	httpMetrics *middleware.HTTPMetrics,
	logger *logging.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		apiHandler:       apiHandler,
		websocketHandler: websocketHandler,
		security:         security,
		registry:         registry,
		httpMetrics:      httpMetrics,
		logger:           logger,
	}
}

// Setup registers all routes and returns the composed handler.
func (rt *Router) Setup() http.Handler {
	// Probe endpoints are intentionally unauthenticated.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)

	reportLimiter := middleware.NewIPRateLimiter(rt.security.ReportRPS, rt.security.ReportBurst)

	// Collector-rendered text exposition for external scrapers.
	rt.mux.Handle("/metrics", authMiddleware(http.HandlerFunc(rt.apiHandler.ExportMetrics)))

	// Process self-instrumentation via the prometheus client.
	rt.mux.Handle("/internal/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	// WebSocket event stream.
	rt.mux.Handle("/ws", authMiddleware(http.HandlerFunc(rt.websocketHandler.HandleConnection)))

	// JSON API.
	rt.mux.Handle("/api/v1/health", authMiddleware(http.HandlerFunc(rt.apiHandler.GetHealth)))
	rt.mux.Handle("/api/v1/metrics", authMiddleware(http.HandlerFunc(rt.apiHandler.GetMetrics)))
	rt.mux.Handle("/api/v1/status", authMiddleware(http.HandlerFunc(rt.apiHandler.GetStatus)))
	// Creation is rate limited; listing is read-only and is not.
	createReport := middleware.RateLimit(reportLimiter, rt.httpMetrics.ReportThrottled)(
		http.HandlerFunc(rt.apiHandler.CreateReport))
	rt.mux.Handle("/api/v1/reports", authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.apiHandler.ListReports(w, r)
			return
		}
		createReport.ServeHTTP(w, r)
	})))

	var h http.Handler = rt.mux
	h = middleware.Compression(h)
	h = rt.httpMetrics.Middleware(h)
	h = middleware.Logger(rt.logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}
