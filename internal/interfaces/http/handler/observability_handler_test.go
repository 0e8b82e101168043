package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/observability-core/internal/health"
	"github.com/dreschagin/observability-core/internal/observability"
	"github.com/dreschagin/observability-core/internal/report"
	"github.com/dreschagin/observability-core/pkg/config"
)

func newTestHandler(t *testing.T) (*ObservabilityHandler, *observability.Manager) {
	t.Helper()

	cfg := &config.Config{
		Logging: config.LoggingConfig{
			Level:       "debug",
			Format:      "json",
			File:        filepath.Join(t.TempDir(), "app.log"),
			MaxFileSize: "10MB",
			MaxFiles:    3,
		},
		Metrics: config.MetricsConfig{
			Enabled:         true,
			RetentionDays:   30,
			MaxSeriesLength: 1000,
			Environment:     "test",
		},
		Health: config.HealthConfig{
			Enabled:  false,
			Interval: time.Minute,
			Timeout:  2 * time.Second,
		},
		Reporting: config.ReportingConfig{
			Enabled:       true,
			OutputDir:     t.TempDir(),
			RetentionDays: 7,
		},
	}

	manager, err := observability.NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(manager.Destroy)

	return NewObservabilityHandler(manager, manager.Logger()), manager
}

func TestGetHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var system health.SystemHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &system); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	if len(system.Components) == 0 {
		t.Error("no components in aggregate response")
	}
}

func TestGetHealthSingleCheck(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health?check=logging_service", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var system health.SystemHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &system); err != nil {
		t.Fatal(err)
	}
	if len(system.Components) != 1 {
		t.Errorf("components = %d, want 1", len(system.Components))
	}
	if _, ok := system.Components["logging_service"]; !ok {
		t.Error("requested check missing")
	}
}

func TestGetHealthUnknownCheck(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health?check=nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "is not registered") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetHealthUnhealthyMapsTo503(t *testing.T) {
	h, m := newTestHandler(t)

	m.Health().Register(health.Check{
		Name:     "broken_dependency",
		Critical: true,
		Check: func(ctx context.Context) health.Outcome {
			return health.Outcome{Status: health.StatusUnhealthy, Err: errors.New("connection refused")}
		},
	})

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health?check=broken_dependency", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetHealthMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestGetMetrics(t *testing.T) {
	h, m := newTestHandler(t)
	m.Metrics().IncrementCounter("test_executions_total", map[string]string{"engine": "playwright", "status": "passed"}, 1)

	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var snapshot struct {
		TotalCount  int    `json:"totalCount"`
		Environment string `json:"environment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.TotalCount != 1 || snapshot.Environment != "test" {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestExportMetrics(t *testing.T) {
	h, m := newTestHandler(t)
	m.Metrics().IncrementCounter("test_executions_total", nil, 1)

	rec := httptest.NewRecorder()
	h.ExportMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "# TYPE test_executions_total counter") {
		t.Errorf("exposition missing counter:\n%s", rec.Body.String())
	}
}

func TestCreateReport(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"type":"system-health","format":"html","title":"Ops Review"}`
	rec := httptest.NewRecorder()
	h.CreateReport(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var generated report.Generated
	if err := json.Unmarshal(rec.Body.Bytes(), &generated); err != nil {
		t.Fatal(err)
	}
	if generated.Report.Type != report.TypeSystemHealth {
		t.Errorf("type = %s", generated.Report.Type)
	}
	if generated.Report.Title != "Ops Review" {
		t.Errorf("title = %q", generated.Report.Title)
	}
	if generated.FilePath == "" {
		t.Error("artifact not persisted")
	}
}

func TestCreateReportBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type": `},
		{"missing type", `{"format":"json"}`},
		{"unknown format", `{"type":"system-health","format":"docx"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateReport(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

type fakeCache struct {
	store   map[string][]byte
	getErr  error
	setErr  error
	delErr  error
	setKeys []string
	delKeys []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.store[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}) error {
	c.setKeys = append(c.setKeys, key)
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.delKeys = append(c.delKeys, key)
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.store, key)
	return nil
}

func TestGetStatusPopulatesCache(t *testing.T) {
	h, _ := newTestHandler(t)
	cache := newFakeCache()
	h.SetCache(cache, func(kind string) string { return "summary:" + kind })

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(cache.setKeys) != 1 || cache.setKeys[0] != "summary:status" {
		t.Errorf("cache writes = %v", cache.setKeys)
	}

	var summary observability.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Reports.Templates < 4 {
		t.Errorf("summary = %+v", summary.Reports)
	}
}

func TestGetStatusServesFromCache(t *testing.T) {
	h, m := newTestHandler(t)
	cache := newFakeCache()
	h.SetCache(cache, func(kind string) string { return kind })

	// Warm the cache, then change live state; the cached view must win.
	h.GetStatus(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if _, err := m.GenerateReport(context.Background(), report.Options{Type: report.TypeTestExecution}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var summary observability.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Reports.Generated != 0 {
		t.Errorf("served live state, generated = %d, want cached 0", summary.Reports.Generated)
	}
}

func TestGetStatusCacheSetFailureIsBestEffort(t *testing.T) {
	h, _ := newTestHandler(t)
	cache := newFakeCache()
	cache.getErr = errors.New("unavailable")
	cache.setErr = errors.New("unavailable")
	h.SetCache(cache, func(kind string) string { return kind })

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, cache failure must not surface", rec.Code)
	}
}

func TestCreateReportInvalidatesCachedStatus(t *testing.T) {
	h, _ := newTestHandler(t)
	cache := newFakeCache()
	h.SetCache(cache, func(kind string) string { return "summary:" + kind })

	// Warm the cached summary, then generate a report through the API.
	h.GetStatus(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if _, ok := cache.store["summary:status"]; !ok {
		t.Fatal("summary not cached")
	}

	body := `{"type":"system-health","format":"json"}`
	rec := httptest.NewRecorder()
	h.CreateReport(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if len(cache.delKeys) != 1 || cache.delKeys[0] != "summary:status" {
		t.Errorf("cache deletes = %v", cache.delKeys)
	}

	// The next summary must be recomputed and see the new report.
	rec = httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var summary observability.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Reports.Generated != 1 {
		t.Errorf("generated = %d, want 1", summary.Reports.Generated)
	}
}

func TestCreateReportCacheDeleteFailureIsBestEffort(t *testing.T) {
	h, _ := newTestHandler(t)
	cache := newFakeCache()
	cache.delErr = errors.New("unavailable")
	h.SetCache(cache, func(kind string) string { return kind })

	body := `{"type":"system-health","format":"json"}`
	rec := httptest.NewRecorder()
	h.CreateReport(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, cache failure must not surface", rec.Code)
	}
}

type stubStorage struct{}

func (stubStorage) PutObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	return "memory://" + key, nil
}

type listingStorage struct {
	stubStorage
	prefix  string
	limit   int
	objects []report.StoredObject
}

func (s *listingStorage) ListObjects(_ context.Context, prefix string, limit int) ([]report.StoredObject, error) {
	s.prefix = prefix
	s.limit = limit
	return s.objects, nil
}

func TestListReports(t *testing.T) {
	h, m := newTestHandler(t)
	storage := &listingStorage{objects: []report.StoredObject{
		{Key: "reports/test-execution/2026/08/30/a.json", URL: "memory://a"},
		{Key: "reports/test-execution/2026/08/29/b.json", URL: "memory://b"},
	}}
	m.Reports().SetStorage(storage, "reports")

	rec := httptest.NewRecorder()
	h.ListReports(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?type=test-execution&limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if storage.prefix != "reports/test-execution/" {
		t.Errorf("prefix = %q", storage.prefix)
	}
	if storage.limit != 5 {
		t.Errorf("limit = %d", storage.limit)
	}

	var resp struct {
		Reports []report.StoredObject `json:"reports"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Reports) != 2 {
		t.Errorf("count = %d, reports = %d", resp.Count, len(resp.Reports))
	}
}

func TestListReportsBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing type", "/api/v1/reports"},
		{"bad limit", "/api/v1/reports?type=system-health&limit=nope"},
		{"negative limit", "/api/v1/reports?type=system-health&limit=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ListReports(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListReportsWithoutListingStorage(t *testing.T) {
	h, m := newTestHandler(t)

	// No storage at all, then a storage that cannot enumerate.
	rec := httptest.NewRecorder()
	h.ListReports(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?type=system-health", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("no storage: status = %d, want 501", rec.Code)
	}

	m.Reports().SetStorage(stubStorage{}, "reports")
	rec = httptest.NewRecorder()
	h.ListReports(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?type=system-health", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("upload-only storage: status = %d, want 501", rec.Code)
	}
}

func TestGetStatusWithoutCache(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summary observability.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
