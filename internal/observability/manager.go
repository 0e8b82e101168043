package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dreschagin/observability-core/internal/health"
	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/internal/metrics"
	"github.com/dreschagin/observability-core/internal/report"
	"github.com/dreschagin/observability-core/pkg/config"
)

const managerComponent = "observability-manager"

// Manager owns the four observability subsystems and exposes the unified
// operational surface: logging, metric tracking, health checks, report
// generation and the event bus tying them together.
type Manager struct {
	mu  sync.Mutex
	cfg *config.Config

	logger  *logging.Logger
	metrics *metrics.Collector
	health  *health.Monitor
	reports *report.Generator
	bus     *Bus

	started   bool
	destroyed bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// Summary is the cross-subsystem snapshot returned by GetObservabilitySummary.
type Summary struct {
	Timestamp time.Time           `json:"timestamp"`
	Logging   LoggingSummary      `json:"logging"`
	Metrics   MetricsSummary      `json:"metrics"`
	Health    health.SystemHealth `json:"health"`
	Reports   ReportsSummary      `json:"reports"`
}

type LoggingSummary struct {
	Level string        `json:"level"`
	Stats logging.Stats `json:"stats"`
}

type MetricsSummary struct {
	Enabled     bool `json:"enabled"`
	Registered  int  `json:"registered"`
	SeriesCount int  `json:"seriesCount"`
	TotalCount  int  `json:"totalCount"`
}

type ReportsSummary struct {
	Generated int64  `json:"generated"`
	Templates int    `json:"templates"`
	OutputDir string `json:"outputDir"`
}

// ConfigUpdate carries the runtime-adjustable settings. Nil fields are left
// unchanged; set fields fan out to the live subsystems immediately.
type ConfigUpdate struct {
	LogLevel             *string
	MetricsEnabled       *bool
	MetricsRetentionDays *int
	HealthEnabled        *bool
	ReportRetentionDays  *int
}

func NewManager(cfg *config.Config) (*Manager, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// The monitor starts disabled so every check, defaults included, is
	// registered through the manager's logging wrapper before scheduling.
	monitorCfg := cfg.Health
	monitorCfg.Enabled = false

	m := &Manager{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(cfg.Metrics),
		health:  health.NewMonitor(monitorCfg),
		reports: report.NewGenerator(cfg.Reporting),
		bus:     NewBus(),
		stopCh:  make(chan struct{}),
	}

	m.registerSelfMetrics()
	if cfg.Health.Enabled {
		for _, check := range health.DefaultChecks() {
			m.RegisterHealthCheck(check)
		}
	}
	m.registerSelfChecks()
	if cfg.Health.Enabled {
		m.health.SetEnabled(true)
	}

	return m, nil
}

func (m *Manager) registerSelfMetrics() {
	m.metrics.Register(metrics.Registration{
		Name:        "observability_events_total",
		Type:        metrics.TypeCounter,
		Description: "Events emitted through the observability manager",
		Labels:      []string{"type"},
	})
	m.metrics.Register(metrics.Registration{
		Name:        "log_entries_total",
		Type:        metrics.TypeCounter,
		Description: "Log entries written through the manager",
		Labels:      []string{"level"},
	})
	m.metrics.Register(metrics.Registration{
		Name:        "health_checks_total",
		Type:        metrics.TypeCounter,
		Description: "Health check runs requested through the manager",
		Labels:      []string{"check", "status"},
	})
	m.metrics.Register(metrics.Registration{
		Name:        "reports_generated_total",
		Type:        metrics.TypeCounter,
		Description: "Reports produced by the generator",
		Labels:      []string{"type", "format"},
	})
}

// RegisterHealthCheck registers a check whose function is wrapped so an
// unhealthy or degraded outcome warn-logs, a returned error error-logs and a
// panic error-logs before the monitor's recovery converts it.
func (m *Manager) RegisterHealthCheck(check health.Check) {
	check.Check = m.wrapCheckFunc(check.Name, check.Check)
	m.health.Register(check)
}

func (m *Manager) wrapCheckFunc(name string, fn health.CheckFunc) health.CheckFunc {
	return func(ctx context.Context) health.Outcome {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("health check panicked",
					logging.Context{Component: managerComponent, Operation: "health-check"},
					map[string]interface{}{"check": name}, fmt.Errorf("%v", r))
				panic(r)
			}
		}()

		outcome := fn(ctx)
		if outcome.Err != nil {
			m.logger.Error("health check reported an error",
				logging.Context{Component: managerComponent, Operation: "health-check"},
				map[string]interface{}{"check": name, "status": string(outcome.Status)}, outcome.Err)
		}
		if outcome.Status != health.StatusHealthy {
			m.logger.Warn("health check reported "+string(outcome.Status),
				logging.Context{Component: managerComponent, Operation: "health-check"},
				map[string]interface{}{"check": name})
		}
		return outcome
	}
}

func (m *Manager) registerSelfChecks() {
	m.RegisterHealthCheck(health.Check{
		Name:     "logging_service",
		Critical: true,
		Check: func(ctx context.Context) health.Outcome {
			stats := m.logger.Stats()
			m.mu.Lock()
			level := m.cfg.Logging.Level
			m.mu.Unlock()
			return health.Outcome{
				Status: health.StatusHealthy,
				Details: map[string]interface{}{
					"level":        level,
					"totalEntries": stats.TotalEntries,
					"fileSize":     stats.FileSize,
				},
			}
		},
	})

	m.RegisterHealthCheck(health.Check{
		Name:     "metrics_collector",
		Critical: true,
		Check: func(ctx context.Context) health.Outcome {
			series := m.metrics.SeriesCount()
			if series == 0 {
				return health.Outcome{
					Status:  health.StatusDegraded,
					Details: map[string]interface{}{"seriesCount": 0},
					Err:     fmt.Errorf("no metric series recorded yet"),
				}
			}
			return health.Outcome{
				Status:  health.StatusHealthy,
				Details: map[string]interface{}{"seriesCount": series},
			}
		},
	})

	m.RegisterHealthCheck(health.Check{
		Name: "report_generator",
		Check: func(ctx context.Context) health.Outcome {
			dir := m.reports.OutputDir()
			if dir == "" {
				return health.Outcome{
					Status:  health.StatusHealthy,
					Details: map[string]interface{}{"persistence": "disabled"},
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return health.Outcome{Status: health.StatusDegraded, Err: err}
			}
			probe := filepath.Join(dir, ".writecheck")
			if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
				return health.Outcome{Status: health.StatusDegraded, Err: err}
			}
			_ = os.Remove(probe)
			return health.Outcome{
				Status:  health.StatusHealthy,
				Details: map[string]interface{}{"outputDir": dir},
			}
		},
	})
}

// Log writes one entry through the shared logger, counts it and emits a
// log_entry event.
func (m *Manager) Log(level, message string, ctx logging.Context, data map[string]interface{}, err error) {
	m.logger.Log(level, message, ctx, data, err)
	m.metrics.IncrementCounter("log_entries_total", map[string]string{"level": level}, 1)

	// The event mirrors the written entry; errors travel as their message so
	// the payload stays serializable.
	payload := map[string]interface{}{
		"level":   level,
		"message": message,
		"context": ctx,
	}
	if len(data) > 0 {
		payload["data"] = data
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	m.emit(EventLogEntry, payload)
}

// TrackMetric announces a domain observation. Recording into a series stays
// the collector's job through its typed methods; this surface exists for
// listeners that react to observations without owning a registration.
func (m *Manager) TrackMetric(name string, value float64, labels map[string]string) {
	m.emit(EventMetricRecorded, map[string]interface{}{
		"name":   name,
		"value":  value,
		"labels": labels,
	})
}

// PerformHealthCheck runs either one named check or the full registry and
// returns the aggregate view. For a single check the envelope carries only
// that component and reports no uptime.
func (m *Manager) PerformHealthCheck(ctx context.Context, name string) (*health.SystemHealth, error) {
	if name != "" {
		result := m.health.RunSingleCheck(ctx, name)
		if result == nil {
			return nil, fmt.Errorf("health check %q is not registered", name)
		}

		envelope := &health.SystemHealth{
			Status:     result.Status,
			Components: map[string]health.Result{name: *result},
			Summary:    singleCheckSummary(result.Status),
		}
		m.finishHealthCheck(name, result.Status)
		return envelope, nil
	}

	m.health.RunAllChecks(ctx)
	system := m.health.GetSystemHealth()
	m.finishHealthCheck("all", system.Status)
	return &system, nil
}

func (m *Manager) finishHealthCheck(check string, status health.Status) {
	m.metrics.IncrementCounter("health_checks_total",
		map[string]string{"check": check, "status": string(status)}, 1)
	m.emit(EventHealthCheckCompleted, map[string]interface{}{
		"check":  check,
		"status": string(status),
	})
	if status != health.StatusHealthy {
		m.logger.Warn("health check reported "+string(status),
			logging.Context{Component: managerComponent, Operation: "health-check"},
			map[string]interface{}{"check": check, "status": string(status)})
	}
}

func singleCheckSummary(status health.Status) health.Summary {
	s := health.Summary{Total: 1}
	switch status {
	case health.StatusHealthy:
		s.Healthy = 1
	case health.StatusDegraded:
		s.Degraded = 1
	default:
		s.Unhealthy = 1
	}
	return s
}

// GenerateReport delegates to the generator, counts the artifact and emits a
// report_generated event.
func (m *Manager) GenerateReport(ctx context.Context, opts report.Options) (*report.Generated, error) {
	generated, err := m.reports.Generate(ctx, opts)
	if err != nil {
		m.logger.Error("report generation failed",
			logging.Context{Component: managerComponent, Operation: "generate-report"},
			map[string]interface{}{"type": string(opts.Type), "format": string(opts.Format)}, err)
		return nil, err
	}

	m.metrics.IncrementCounter("reports_generated_total", map[string]string{
		"type":   string(generated.Report.Type),
		"format": string(generated.Report.Metadata.Format),
	}, 1)
	m.emit(EventReportGenerated, map[string]interface{}{
		"id":     generated.Report.ID,
		"type":   string(generated.Report.Type),
		"format": string(generated.Report.Metadata.Format),
		"path":   generated.FilePath,
	})
	return generated, nil
}

// GetObservabilitySummary assembles the cross-subsystem snapshot.
func (m *Manager) GetObservabilitySummary() Summary {
	snapshot := m.metrics.GetAllMetrics()

	m.mu.Lock()
	logLevel := m.cfg.Logging.Level
	metricsEnabled := m.cfg.Metrics.Enabled
	m.mu.Unlock()

	return Summary{
		Timestamp: time.Now(),
		Logging: LoggingSummary{
			Level: logLevel,
			Stats: m.logger.Stats(),
		},
		Metrics: MetricsSummary{
			Enabled:     metricsEnabled,
			Registered:  len(m.metrics.Registrations()),
			SeriesCount: m.metrics.SeriesCount(),
			TotalCount:  snapshot.TotalCount,
		},
		Health: m.health.GetSystemHealth(),
		Reports: ReportsSummary{
			Generated: m.reports.GeneratedCount(),
			Templates: len(m.reports.Templates()),
			OutputDir: m.reports.OutputDir(),
		},
	}
}

// CreateLogger returns a child logger bound to the given context fields.
func (m *Manager) CreateLogger(ctx logging.Context) *logging.Logger {
	return m.logger.Child(ctx)
}

// AddEventListener subscribes to one event type; the returned id removes it.
func (m *Manager) AddEventListener(eventType EventType, listener Listener) int64 {
	return m.bus.Subscribe(eventType, listener)
}

func (m *Manager) RemoveEventListener(eventType EventType, id int64) {
	m.bus.Unsubscribe(eventType, id)
}

// EmitEvent counts the event and dispatches it to the listeners registered
// for its type, in registration order. The counter increment is best-effort
// and never blocks dispatch.
func (m *Manager) EmitEvent(event Event) {
	m.metrics.IncrementCounter("observability_events_total",
		map[string]string{"type": string(event.Type)}, 1)
	m.bus.Emit(event)
}

func (m *Manager) emit(eventType EventType, data map[string]interface{}) {
	m.EmitEvent(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    managerComponent,
		Data:      data,
	})
}

// GetConfig returns a copy of the effective configuration.
func (m *Manager) GetConfig() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.cfg
}

// UpdateConfig applies the set fields to both the stored configuration and
// the live subsystems, then emits a config_updated event.
func (m *Manager) UpdateConfig(update ConfigUpdate) {
	m.mu.Lock()
	changed := map[string]interface{}{}

	if update.LogLevel != nil {
		m.cfg.Logging.Level = *update.LogLevel
		m.logger.SetLevel(*update.LogLevel)
		changed["logLevel"] = *update.LogLevel
	}
	if update.MetricsEnabled != nil {
		m.cfg.Metrics.Enabled = *update.MetricsEnabled
		m.metrics.SetEnabled(*update.MetricsEnabled)
		changed["metricsEnabled"] = *update.MetricsEnabled
	}
	if update.MetricsRetentionDays != nil {
		m.cfg.Metrics.RetentionDays = *update.MetricsRetentionDays
		m.metrics.SetRetention(*update.MetricsRetentionDays)
		changed["metricsRetentionDays"] = *update.MetricsRetentionDays
	}
	if update.HealthEnabled != nil {
		m.cfg.Health.Enabled = *update.HealthEnabled
		m.health.SetEnabled(*update.HealthEnabled)
		changed["healthEnabled"] = *update.HealthEnabled
	}
	if update.ReportRetentionDays != nil {
		m.cfg.Reporting.RetentionDays = *update.ReportRetentionDays
		m.reports.SetRetention(*update.ReportRetentionDays)
		changed["reportRetentionDays"] = *update.ReportRetentionDays
	}
	m.mu.Unlock()

	if len(changed) == 0 {
		return
	}

	m.logger.Info("configuration updated",
		logging.Context{Component: managerComponent, Operation: "update-config"}, changed)
	m.emit(EventConfigUpdated, changed)
}

// Start launches the background loops: system metric collection and the
// daily maintenance tick that prunes metric series and expired reports.
// Health check schedules run from registration and need no start here.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.destroyed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.metrics.Start()

	m.wg.Add(1)
	go m.maintenanceLoop()

	m.logger.Info("observability manager started",
		logging.Context{Component: managerComponent, Operation: "start"}, nil)
}

func (m *Manager) maintenanceLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.metrics.Prune()
			removed, err := m.reports.CleanupOldReports()
			if err != nil {
				m.logger.Warn("report cleanup failed",
					logging.Context{Component: managerComponent, Operation: "cleanup"},
					map[string]interface{}{"error": err.Error()})
				continue
			}
			if removed > 0 {
				m.logger.Info("expired reports removed",
					logging.Context{Component: managerComponent, Operation: "cleanup"},
					map[string]interface{}{"removed": removed})
			}
		case <-m.stopCh:
			return
		}
	}
}

// Stop halts the maintenance loop. Subsystems stay usable; Destroy is the
// terminal teardown.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	m.mu.Unlock()
}

// Destroy stops everything and releases subsystem resources. Idempotent;
// the manager is unusable afterwards.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.mu.Unlock()

	m.Stop()
	m.bus.Clear()
	m.health.Destroy()
	m.metrics.Destroy()

	m.logger.Info("observability manager destroyed",
		logging.Context{Component: managerComponent, Operation: "destroy"}, nil)
	_ = m.logger.Close()
}

// Accessors for the transport layer and composition root.

func (m *Manager) Logger() *logging.Logger     { return m.logger }
func (m *Manager) Metrics() *metrics.Collector { return m.metrics }
func (m *Manager) Health() *health.Monitor     { return m.health }
func (m *Manager) Reports() *report.Generator  { return m.reports }
func (m *Manager) Bus() *Bus                   { return m.bus }
