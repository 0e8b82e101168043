package report

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/observability-core/pkg/config"
)

func newTestGenerator(t *testing.T) (*Generator, string) {
	t.Helper()

	dir := t.TempDir()
	g := NewGenerator(config.ReportingConfig{
		Enabled:       true,
		OutputDir:     dir,
		RetentionDays: 30,
		Schedule:      "0 6 * * *",
	})
	return g, dir
}

func TestGenerateRequiresType(t *testing.T) {
	g, _ := newTestGenerator(t)

	if _, err := g.Generate(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for missing report type")
	}
}

func TestGenerateJSON(t *testing.T) {
	g, dir := newTestGenerator(t)

	result, err := g.Generate(context.Background(), Options{
		Type:        TypeTestExecution,
		Title:       "Nightly Run",
		Description: "midnight suite",
		Data:        map[string]interface{}{"totalTests": 10, "passed": 9},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var decoded Data
	if err := json.Unmarshal([]byte(result.Content), &decoded); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if decoded.Type != TypeTestExecution {
		t.Errorf("type = %s", decoded.Type)
	}
	if decoded.Title != "Nightly Run" {
		t.Errorf("title = %q", decoded.Title)
	}
	if decoded.ID == "" {
		t.Error("id not assigned")
	}
	if decoded.Metadata.Version != "1.0" || decoded.Metadata.Generator != "observability-core" {
		t.Errorf("metadata = %+v", decoded.Metadata)
	}
	if decoded.Metadata.Format != FormatJSON {
		t.Errorf("metadata format = %s, want json (default)", decoded.Metadata.Format)
	}

	// Default range is the trailing 24 hours.
	if span := decoded.TimeRange.End.Sub(decoded.TimeRange.Start); span != 24*time.Hour {
		t.Errorf("default time range span = %s, want 24h", span)
	}

	if result.FilePath == "" {
		t.Fatal("artifact not persisted")
	}
	wantName := "test-execution_" + time.Now().Format("2006-01-02") + "_" + decoded.ID + ".json"
	if filepath.Base(result.FilePath) != wantName {
		t.Errorf("file name = %q, want %q", filepath.Base(result.FilePath), wantName)
	}
	raw, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("artifact unreadable: %v", err)
	}
	if string(raw) != result.Content {
		t.Error("artifact content differs from returned content")
	}
	if filepath.Dir(result.FilePath) != dir {
		t.Errorf("artifact outside output dir: %s", result.FilePath)
	}
}

func TestGenerateHTML(t *testing.T) {
	g, _ := newTestGenerator(t)

	result, err := g.Generate(context.Background(), Options{
		Type:   TypeTestExecution,
		Format: FormatHTML,
		Title:  "Suite <A>",
		Data: map[string]interface{}{
			"totalTests": 4,
			"passed":     3,
			"failed":     1,
			"skipped":    0,
			"results": []interface{}{
				map[string]interface{}{"name": "login", "status": "passed", "duration": "1.2s", "engine": "playwright"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	content := result.Content
	if !strings.Contains(content, "Suite &lt;A&gt;") {
		t.Error("title not escaped into the document")
	}
	if !strings.Contains(content, ">4<") && !strings.Contains(content, "4") {
		t.Error("totalTests not substituted")
	}
	if !strings.Contains(content, "75.0%") {
		t.Errorf("pass rate not computed:\n%s", content)
	}
	if !strings.Contains(content, "<td>login</td>") {
		t.Error("results row not rendered")
	}
	if strings.Contains(content, "{{totalTests}}") {
		t.Error("supplied placeholder left literal")
	}
}

func TestGenerateHTMLMissingVariablesStayLiteral(t *testing.T) {
	g, _ := newTestGenerator(t)

	result, err := g.Generate(context.Background(), Options{
		Type:   TypePerformance,
		Format: FormatHTML,
		Data:   map[string]interface{}{"avgResponseTime": "120ms"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.Contains(result.Content, "120ms") {
		t.Error("supplied variable not substituted")
	}
	if !strings.Contains(result.Content, "{{p95ResponseTime}}") {
		t.Error("missing variable should stay a literal placeholder")
	}
}

func TestGeneratePDFIsBase64HTML(t *testing.T) {
	g, _ := newTestGenerator(t)

	result, err := g.Generate(context.Background(), Options{
		Type:   TypeSystemHealth,
		Format: FormatPDF,
		Data:   map[string]interface{}{"overallStatus": "healthy"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(result.Content)
	if err != nil {
		t.Fatalf("content is not base64: %v", err)
	}
	if !strings.Contains(string(decoded), "<html") {
		t.Error("decoded payload is not the HTML rendering")
	}
	if !strings.Contains(string(decoded), "healthy") {
		t.Error("decoded payload missing substituted data")
	}
}

func TestGenerateUnsupportedFormat(t *testing.T) {
	g, _ := newTestGenerator(t)

	_, err := g.Generate(context.Background(), Options{Type: TypeTestExecution, Format: Format("xlsx")})
	if err == nil || !strings.Contains(err.Error(), "unsupported report format") {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	g, _ := newTestGenerator(t)

	_, err := g.Generate(context.Background(), Options{
		Type:       TypeTestExecution,
		Format:     FormatHTML,
		TemplateID: "does-not-exist",
	})
	if err == nil || !strings.Contains(err.Error(), `template "does-not-exist" not found`) {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateDefaultTitles(t *testing.T) {
	g, _ := newTestGenerator(t)

	tests := []struct {
		reportType Type
		want       string
	}{
		{TypeTestExecution, "Test Execution Report"},
		{TypeHealingSummary, "Healing Summary Report"},
		{TypeSystemHealth, "System Health Report"},
		{TypePerformance, "Performance Report"},
	}

	for _, tt := range tests {
		result, err := g.Generate(context.Background(), Options{Type: tt.reportType})
		if err != nil {
			t.Fatalf("Generate(%s) error = %v", tt.reportType, err)
		}
		if result.Report.Title != tt.want {
			t.Errorf("default title for %s = %q, want %q", tt.reportType, result.Report.Title, tt.want)
		}
	}
}

func TestGenerateCustomTemplate(t *testing.T) {
	g, _ := newTestGenerator(t)

	g.RegisterTemplate(Template{
		ID:       "minimal",
		Name:     "Minimal",
		Type:     TypeTestExecution,
		Template: "<p>{{title}} at {{generatedAt}}</p>",
	})

	result, err := g.Generate(context.Background(), Options{
		Type:       TypeTestExecution,
		Format:     FormatHTML,
		Title:      "Custom",
		TemplateID: "minimal",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(result.Content, "<p>Custom at ") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestGenerateDisabledSkipsPersistence(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(config.ReportingConfig{Enabled: false, OutputDir: dir, RetentionDays: 7})

	result, err := g.Generate(context.Background(), Options{Type: TypeTestExecution})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Content == "" {
		t.Error("rendering should still happen when persistence is disabled")
	}
	if result.FilePath != "" {
		t.Errorf("unexpected artifact at %s", result.FilePath)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output dir not empty: %d entries", len(entries))
	}
}

type fakeStorage struct {
	keys        []string
	contentType string
	body        []byte
	url         string
	err         error
}

func (s *fakeStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	s.keys = append(s.keys, key)
	s.contentType = contentType
	s.body = body
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestGenerateUploadsToStorage(t *testing.T) {
	g, _ := newTestGenerator(t)
	storage := &fakeStorage{url: "https://reports.example.com/r.json"}
	g.SetStorage(storage, "reports/")

	result, err := g.Generate(context.Background(), Options{Type: TypeTestExecution})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.URL != storage.url {
		t.Errorf("url = %q, want %q", result.URL, storage.url)
	}
	if len(storage.keys) != 1 {
		t.Fatalf("PutObject called %d times", len(storage.keys))
	}

	key := storage.keys[0]
	wantPrefix := "reports/test-execution/" + time.Now().Format("2006/01/02") + "/"
	if !strings.HasPrefix(key, wantPrefix) {
		t.Errorf("key = %q, want prefix %q", key, wantPrefix)
	}
	if storage.contentType != "application/json" {
		t.Errorf("content type = %q", storage.contentType)
	}
	if string(storage.body) != result.Content {
		t.Error("uploaded body differs from rendered content")
	}
}

func TestGenerateUploadFailureIsBestEffort(t *testing.T) {
	g, _ := newTestGenerator(t)
	g.SetStorage(&fakeStorage{err: os.ErrDeadlineExceeded}, "")

	result, err := g.Generate(context.Background(), Options{Type: TypeTestExecution})
	if err != nil {
		t.Fatalf("upload failure must not fail generation: %v", err)
	}
	if result.URL != "" {
		t.Errorf("url = %q, want empty on failed upload", result.URL)
	}
	if result.FilePath == "" {
		t.Error("local artifact should still be written")
	}
}

func TestGeneratedCount(t *testing.T) {
	g, _ := newTestGenerator(t)

	for i := 0; i < 3; i++ {
		if _, err := g.Generate(context.Background(), Options{Type: TypeSystemHealth}); err != nil {
			t.Fatal(err)
		}
	}
	if got := g.GeneratedCount(); got != 3 {
		t.Errorf("GeneratedCount() = %d, want 3", got)
	}
}

func TestSubstituteVariables(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		variables map[string]string
		want      string
	}{
		{
			name:      "simple substitution",
			template:  "Hello {{name}}",
			variables: map[string]string{"name": "world"},
			want:      "Hello world",
		},
		{
			name:      "repeated placeholder",
			template:  "{{x}} and {{x}}",
			variables: map[string]string{"x": "1"},
			want:      "1 and 1",
		},
		{
			name:      "missing stays literal",
			template:  "{{known}} {{unknown}}",
			variables: map[string]string{"known": "v"},
			want:      "v {{unknown}}",
		},
		{
			name:      "no placeholders",
			template:  "static",
			variables: map[string]string{"unused": "v"},
			want:      "static",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubstituteVariables(tt.template, tt.variables); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanupOldReports(t *testing.T) {
	g, dir := newTestGenerator(t)
	g.SetRetention(7)

	fresh := filepath.Join(dir, "fresh.json")
	stale := filepath.Join(dir, "stale.json")
	for _, path := range []string{fresh, stale} {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().AddDate(0, 0, -8)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	removed, err := g.CleanupOldReports()
	if err != nil {
		t.Fatalf("CleanupOldReports() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh artifact removed")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale artifact survived")
	}
}

func TestCleanupMissingDirectory(t *testing.T) {
	g := NewGenerator(config.ReportingConfig{Enabled: true, OutputDir: filepath.Join(t.TempDir(), "never-created"), RetentionDays: 7})

	removed, err := g.CleanupOldReports()
	if err != nil || removed != 0 {
		t.Errorf("CleanupOldReports() = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestDefaultTemplatesRegistered(t *testing.T) {
	g, _ := newTestGenerator(t)

	for _, id := range []string{"test-execution-default", "healing-summary-default", "system-health-default", "performance-default"} {
		tpl, ok := g.Template(id)
		if !ok {
			t.Errorf("template %q missing", id)
			continue
		}
		if !strings.Contains(tpl.Template, "{{title}}") {
			t.Errorf("template %q has no title placeholder", id)
		}
	}
	if got := len(g.Templates()); got < 4 {
		t.Errorf("Templates() = %d entries, want >= 4", got)
	}
}

type listableStorage struct {
	fakeStorage
	prefix  string
	limit   int
	objects []StoredObject
	listErr error
}

func (s *listableStorage) ListObjects(_ context.Context, prefix string, limit int) ([]StoredObject, error) {
	s.prefix = prefix
	s.limit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.objects, nil
}

func TestListStoredReports(t *testing.T) {
	g, _ := newTestGenerator(t)
	storage := &listableStorage{objects: []StoredObject{
		{Key: "qa/reports/test-execution/2026/08/30/r.json", URL: "https://reports.example.com/r.json"},
	}}
	g.SetStorage(storage, "qa/reports/")

	objects, err := g.ListStoredReports(context.Background(), TypeTestExecution, 10)
	if err != nil {
		t.Fatalf("ListStoredReports() error = %v", err)
	}
	if len(objects) != 1 || objects[0].Key != storage.objects[0].Key {
		t.Errorf("objects = %+v", objects)
	}
	if storage.prefix != "qa/reports/test-execution/" {
		t.Errorf("prefix = %q", storage.prefix)
	}
	if storage.limit != 10 {
		t.Errorf("limit = %d", storage.limit)
	}
}

func TestListStoredReportsUnsupported(t *testing.T) {
	g, _ := newTestGenerator(t)

	// Without any storage attached.
	if _, err := g.ListStoredReports(context.Background(), TypeSystemHealth, 0); !errors.Is(err, ErrListingUnsupported) {
		t.Errorf("no storage: error = %v, want ErrListingUnsupported", err)
	}

	// With a storage that only supports uploads.
	g.SetStorage(&fakeStorage{url: "https://reports.example.com/r.json"}, "reports")
	if _, err := g.ListStoredReports(context.Background(), TypeSystemHealth, 0); !errors.Is(err, ErrListingUnsupported) {
		t.Errorf("upload-only storage: error = %v, want ErrListingUnsupported", err)
	}
}
