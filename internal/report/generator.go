package report

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/observability-core/pkg/config"
	"github.com/google/uuid"
)

// Type enumerates the four report kinds.
type Type string

const (
	TypeTestExecution  Type = "test-execution"
	TypeHealingSummary Type = "healing-summary"
	TypeSystemHealth   Type = "system-health"
	TypePerformance    Type = "performance"
)

// Format of the rendered artifact.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Template is a registered report skeleton with {{variable}} placeholders.
// Immutable once registered; registration is additive/overwriting by id.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        Type     `json:"type"`
	Template    string   `json:"template"`
	Variables   []string `json:"variables"`
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Metadata struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
	Format    Format `json:"format"`
}

// Data is the report envelope. Never mutated after creation.
type Data struct {
	ID          string                 `json:"id"`
	Type        Type                   `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	GeneratedAt time.Time              `json:"generatedAt"`
	TimeRange   TimeRange              `json:"timeRange"`
	Data        map[string]interface{} `json:"data"`
	Metadata    Metadata               `json:"metadata"`
}

// Options for one GenerateReport call.
type Options struct {
	Type        Type
	Format      Format
	Title       string
	Description string
	TemplateID  string
	TimeRange   *TimeRange
	Data        map[string]interface{}
}

// Generated is the result of one generation: the envelope, the rendered
// content and where it landed.
type Generated struct {
	Report   Data   `json:"report"`
	Content  string `json:"content"`
	FilePath string `json:"filePath,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Storage uploads a written report artifact and returns its URL.
type Storage interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// StoredObject is one uploaded artifact as listed from remote storage.
type StoredObject struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url,omitempty"`
}

// Lister is implemented by storages that can enumerate uploaded artifacts.
type Lister interface {
	ListObjects(ctx context.Context, prefix string, limit int) ([]StoredObject, error)
}

// ErrListingUnsupported is returned by ListStoredReports when no storage is
// attached, or the attached storage cannot enumerate artifacts.
var ErrListingUnsupported = errors.New("report storage does not support listing")

const generatorName = "observability-core"

// Generator renders structured report data into JSON/HTML/PDF-placeholder
// artifacts via template variable substitution, with optional persistence to
// disk and upload to object storage.
type Generator struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	retention int
	schedule  string // stored for external schedulers, not acted upon here
	keyPrefix string

	templates map[string]Template
	storage   Storage
	generated int64
}

func NewGenerator(cfg config.ReportingConfig) *Generator {
	g := &Generator{
		enabled:   cfg.Enabled,
		outputDir: cfg.OutputDir,
		retention: cfg.RetentionDays,
		schedule:  cfg.Schedule,
		templates: make(map[string]Template),
	}

	for _, tpl := range defaultTemplates() {
		g.templates[tpl.ID] = tpl
	}

	return g
}

// SetStorage attaches an optional upload target for written artifacts.
func (g *Generator) SetStorage(storage Storage, keyPrefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.storage = storage
	g.keyPrefix = keyPrefix
}

// ListStoredReports enumerates uploaded artifacts for one report type,
// newest first. The storage decides the ordering and the limit clamp.
func (g *Generator) ListStoredReports(ctx context.Context, reportType Type, limit int) ([]StoredObject, error) {
	g.mu.Lock()
	storage := g.storage
	prefix := buildListPrefix(g.keyPrefix, reportType)
	g.mu.Unlock()

	lister, ok := storage.(Lister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	return lister.ListObjects(ctx, prefix, limit)
}

// RegisterTemplate adds or overwrites a template by id.
func (g *Generator) RegisterTemplate(tpl Template) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.templates[tpl.ID] = tpl
}

// Template looks a template up by id.
func (g *Generator) Template(id string) (Template, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tpl, ok := g.templates[id]
	return tpl, ok
}

// Templates returns all registered templates.
func (g *Generator) Templates() []Template {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Template, 0, len(g.templates))
	for _, tpl := range g.templates {
		out = append(out, tpl)
	}
	return out
}

// GeneratedCount reports how many reports this instance has produced.
func (g *Generator) GeneratedCount() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generated
}

// Generate builds the report envelope and renders it in the requested
// format. Unknown templates and formats are returned errors: a report the
// caller asked for must not silently produce nothing. When an output
// directory is configured and reporting is enabled, the artifact is written
// to {outputDir}/{type}_{YYYY-MM-DD}_{id}.{format} and optionally uploaded.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Generated, error) {
	if opts.Type == "" {
		return nil, fmt.Errorf("report type is required")
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}

	now := time.Now()
	timeRange := TimeRange{Start: now.Add(-24 * time.Hour), End: now}
	if opts.TimeRange != nil {
		timeRange = *opts.TimeRange
	}

	data := Data{
		ID:          uuid.New().String(),
		Type:        opts.Type,
		Title:       opts.Title,
		Description: opts.Description,
		GeneratedAt: now,
		TimeRange:   timeRange,
		Data:        opts.Data,
		Metadata: Metadata{
			Version:   "1.0",
			Generator: generatorName,
			Format:    opts.Format,
		},
	}
	if data.Title == "" {
		data.Title = defaultTitle(opts.Type)
	}

	content, err := g.render(data, opts)
	if err != nil {
		return nil, err
	}

	result := &Generated{Report: data, Content: content}

	g.mu.Lock()
	g.generated++
	enabled := g.enabled
	outputDir := g.outputDir
	storage := g.storage
	keyPrefix := g.keyPrefix
	g.mu.Unlock()

	if enabled && outputDir != "" {
		fileName := fmt.Sprintf("%s_%s_%s.%s", data.Type, now.Format("2006-01-02"), data.ID, opts.Format)
		path := filepath.Join(outputDir, fileName)

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write report file: %w", err)
		}
		result.FilePath = path

		if storage != nil {
			key := buildObjectKey(keyPrefix, data.Type, now, fileName)
			url, uploadErr := storage.PutObject(ctx, key, contentTypeFor(opts.Format), []byte(content))
			if uploadErr != nil {
				// Upload is best-effort; the local artifact is the contract.
				fmt.Fprintf(os.Stderr, "report: upload of %s failed: %v\n", fileName, uploadErr)
			} else {
				result.URL = url
			}
		}
	}

	return result, nil
}

func (g *Generator) render(data Data, opts Options) (string, error) {
	switch opts.Format {
	case FormatJSON:
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(encoded), nil

	case FormatHTML:
		return g.renderHTML(data, opts)

	case FormatPDF:
		// Placeholder contract: the rendered HTML is returned base64-encoded
		// in lieu of real PDF bytes until a renderer is wired in.
		html, err := g.renderHTML(data, opts)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString([]byte(html)), nil

	default:
		return "", fmt.Errorf("unsupported report format: %q", opts.Format)
	}
}

func (g *Generator) renderHTML(data Data, opts Options) (string, error) {
	templateID := opts.TemplateID
	if templateID == "" {
		templateID = string(opts.Type) + "-default"
	}

	g.mu.Lock()
	tpl, ok := g.templates[templateID]
	g.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("report template %q not found", templateID)
	}

	variables := variablesFor(data)
	return SubstituteVariables(tpl.Template, variables), nil
}

// SubstituteVariables replaces every {{name}} occurrence with its value.
// Placeholders without a supplied value stay literal; callers must provide
// every variable their template references.
func SubstituteVariables(template string, variables map[string]string) string {
	out := template
	for name, value := range variables {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}

// CleanupOldReports deletes artifacts in the output directory whose
// modification time is older than the retention window.
func (g *Generator) CleanupOldReports() (int, error) {
	g.mu.Lock()
	outputDir := g.outputDir
	retention := g.retention
	g.mu.Unlock()

	if outputDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read report directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retention)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(outputDir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// SetRetention updates the cleanup window.
func (g *Generator) SetRetention(days int) {
	if days < 1 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retention = days
}

// Schedule returns the stored cron-like schedule string. Acting on it is an
// external scheduler's job.
func (g *Generator) Schedule() string {
	return g.schedule
}

// OutputDir returns the configured artifact directory.
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// buildListPrefix is the per-type prefix buildObjectKey nests keys under.
func buildListPrefix(prefix string, reportType Type) string {
	parts := []string{}
	if prefix != "" {
		parts = append(parts, strings.Trim(prefix, "/"))
	}
	parts = append(parts, string(reportType))
	return strings.Join(parts, "/") + "/"
}

func buildObjectKey(prefix string, reportType Type, ts time.Time, fileName string) string {
	parts := []string{}
	if prefix != "" {
		parts = append(parts, strings.Trim(prefix, "/"))
	}
	parts = append(parts, string(reportType), ts.Format("2006/01/02"), fileName)
	return strings.Join(parts, "/")
}

func contentTypeFor(format Format) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func defaultTitle(reportType Type) string {
	switch reportType {
	case TypeTestExecution:
		return "Test Execution Report"
	case TypeHealingSummary:
		return "Healing Summary Report"
	case TypeSystemHealth:
		return "System Health Report"
	case TypePerformance:
		return "Performance Report"
	default:
		return "Report"
	}
}
