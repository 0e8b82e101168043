package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/observability-core/internal/health"
	"github.com/dreschagin/observability-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/internal/observability"
	"github.com/dreschagin/observability-core/internal/report"
)

const handlerComponent = "http-handler"

// SummaryCache is the optional cache in front of the status endpoint.
type SummaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// CacheKeyFunc builds the cache key for one summary kind.
type CacheKeyFunc func(kind string) string

// ObservabilityHandler serves the JSON API over the manager.
type ObservabilityHandler struct {
	manager  *observability.Manager
	cache    SummaryCache
	cacheKey CacheKeyFunc
	logger   *logging.Logger
}

func NewObservabilityHandler(manager *observability.Manager, logger *logging.Logger) *ObservabilityHandler {
	return &ObservabilityHandler{
		manager: manager,
		logger:  logger,
	}
}

// SetCache attaches the optional summary cache.
func (h *ObservabilityHandler) SetCache(cache SummaryCache, keyFunc CacheKeyFunc) {
	h.cache = cache
	h.cacheKey = keyFunc
}

// GetHealth handles GET /api/v1/health[?check=<name>]. The aggregate status
// maps to the HTTP code: unhealthy responds 503 so load balancers can act on
// it, healthy and degraded respond 200.
func (h *ObservabilityHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	checkName := strings.TrimSpace(r.URL.Query().Get("check"))

	system, err := h.manager.PerformHealthCheck(r.Context(), checkName)
	if err != nil {
		middleware.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if system.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	middleware.WriteJSON(w, status, system)
}

// GetMetrics handles GET /api/v1/metrics: the full collector snapshot.
func (h *ObservabilityHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.manager.Metrics().GetAllMetrics())
}

// ExportMetrics handles GET /metrics: the text exposition rendered from the
// collector's own series.
func (h *ObservabilityHandler) ExportMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.manager.Metrics().PrometheusMetrics()))
}

type createReportRequest struct {
	Type        string                 `json:"type"`
	Format      string                 `json:"format"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	TemplateID  string                 `json:"templateId"`
	Data        map[string]interface{} `json:"data"`
	TimeRange   *struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"timeRange"`
}

// CreateReport handles POST /api/v1/reports.
func (h *ObservabilityHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	opts := report.Options{
		Type:        report.Type(req.Type),
		Format:      report.Format(req.Format),
		Title:       req.Title,
		Description: req.Description,
		TemplateID:  req.TemplateID,
		Data:        req.Data,
	}
	if req.TimeRange != nil {
		opts.TimeRange = &report.TimeRange{Start: req.TimeRange.Start, End: req.TimeRange.End}
	}

	generated, err := h.manager.GenerateReport(r.Context(), opts)
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// The status summary counts generated reports, so the cached copy is
	// stale now. Invalidation is best-effort like the rest of the cache.
	if h.cache != nil {
		if err := h.cache.Delete(r.Context(), h.cacheKey("status")); err != nil {
			h.logger.Debug("Failed to invalidate status summary cache",
				logging.Context{Component: handlerComponent},
				map[string]interface{}{"error": err.Error()})
		}
	}

	middleware.WriteJSON(w, http.StatusCreated, generated)
}

// ListReports handles GET /api/v1/reports?type=<type>[&limit=<n>]: uploaded
// report artifacts for one type, newest first. Responds 501 when the
// configured report storage cannot enumerate artifacts.
func (h *ObservabilityHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	reportType := strings.TrimSpace(r.URL.Query().Get("type"))
	if reportType == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "type query parameter is required"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	objects, err := h.manager.Reports().ListStoredReports(r.Context(), report.Type(reportType), limit)
	if err != nil {
		if errors.Is(err, report.ErrListingUnsupported) {
			middleware.WriteJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
			return
		}
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": objects,
		"count":   len(objects),
	})
}

// GetStatus handles GET /api/v1/status: the cross-subsystem summary, served
// from cache when one is attached.
func (h *ObservabilityHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.cache != nil {
		key := h.cacheKey("status")

		var cached observability.Summary
		if err := h.cache.Get(r.Context(), key, &cached); err == nil {
			middleware.WriteJSON(w, http.StatusOK, cached)
			return
		}

		summary := h.manager.GetObservabilitySummary()
		if err := h.cache.Set(r.Context(), key, summary); err != nil {
			h.logger.Debug("Failed to cache status summary",
				logging.Context{Component: handlerComponent},
				map[string]interface{}{"error": err.Error()})
		}
		middleware.WriteJSON(w, http.StatusOK, summary)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.manager.GetObservabilitySummary())
}
