package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/observability-core/pkg/config"
)

// Status of a single check or of the aggregated system.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) known() bool {
	return s == StatusHealthy || s == StatusDegraded || s == StatusUnhealthy
}

// Outcome is what a check function reports. Err may accompany any status;
// a status outside the three known values is normalized to unhealthy when
// the result is recorded.
type Outcome struct {
	Status  Status
	Details map[string]interface{}
	Err     error
}

// CheckFunc runs one health probe. The context is cancelled when the check's
// timeout budget is exhausted; cooperative checks should honor it.
type CheckFunc func(ctx context.Context) Outcome

// Check is a registered health probe.
type Check struct {
	Name     string
	Check    CheckFunc
	Timeout  time.Duration // per-run budget; monitor default when zero
	Interval time.Duration // schedule period; monitor default when zero
	Critical bool          // whether this check can degrade the aggregate
}

// Result is the last recorded outcome for a check name. History is not
// accumulated: every run overwrites the previous result.
type Result struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Summary carries counts by status plus uptime since monitor construction.
type Summary struct {
	Healthy      int   `json:"healthy"`
	Degraded     int   `json:"degraded"`
	Unhealthy    int   `json:"unhealthy"`
	Total        int   `json:"total"`
	UptimeMillis int64 `json:"uptime"`
}

// SystemHealth is the aggregate view, computed on demand and never stored.
type SystemHealth struct {
	Status     Status            `json:"status"`
	Components map[string]Result `json:"components"`
	Summary    Summary           `json:"summary"`
}

// Monitor keeps a registry of named checks, runs them on independent
// schedules with individual timeouts and aggregates their last results.
type Monitor struct {
	mu              sync.Mutex
	enabled         bool
	defaultInterval time.Duration
	defaultTimeout  time.Duration

	checks    map[string]Check
	results   map[string]Result
	schedules map[string]chan struct{}

	startedAt time.Time
	destroyed bool
	wg        sync.WaitGroup
}

func NewMonitor(cfg config.HealthConfig) *Monitor {
	m := &Monitor{
		enabled:         cfg.Enabled,
		defaultInterval: cfg.Interval,
		defaultTimeout:  cfg.Timeout,
		checks:          make(map[string]Check),
		results:         make(map[string]Result),
		schedules:       make(map[string]chan struct{}),
		startedAt:       time.Now(),
	}

	if cfg.Enabled {
		for _, check := range DefaultChecks() {
			m.Register(check)
		}
	}

	return m
}

// Register upserts a check by name. When the monitor is enabled the check
// runs once immediately and then on its own interval until unregistered.
func (m *Monitor) Register(check Check) {
	if check.Timeout <= 0 {
		check.Timeout = m.defaultTimeout
	}
	if check.Interval <= 0 {
		check.Interval = m.defaultInterval
	}

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}

	if stop, scheduled := m.schedules[check.Name]; scheduled {
		close(stop)
		delete(m.schedules, check.Name)
	}
	m.checks[check.Name] = check

	if !m.enabled {
		m.mu.Unlock()
		return
	}

	stop := make(chan struct{})
	m.schedules[check.Name] = stop
	m.mu.Unlock()

	m.wg.Add(1)
	go m.schedule(check, stop)
}

// schedule runs the check once up front and then on every tick until stopped.
func (m *Monitor) schedule(check Check, stop chan struct{}) {
	defer m.wg.Done()

	m.runAndStore(context.Background(), check)

	ticker := time.NewTicker(check.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runAndStore(context.Background(), check)
		case <-stop:
			return
		}
	}
}

// Unregister removes a check, cancels its schedule and discards its result.
func (m *Monitor) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stop, scheduled := m.schedules[name]; scheduled {
		close(stop)
		delete(m.schedules, name)
	}
	delete(m.checks, name)
	delete(m.results, name)
}

// RunAllChecks fires every registered check concurrently and waits for all of
// them; one failing or slow check cannot block the others' results.
func (m *Monitor) RunAllChecks(ctx context.Context) map[string]Result {
	m.mu.Lock()
	checks := make([]Check, 0, len(m.checks))
	for _, check := range m.checks {
		checks = append(checks, check)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			m.runAndStore(ctx, c)
		}(check)
	}
	wg.Wait()

	return m.Results()
}

// RunSingleCheck runs one check on demand. Returns nil for unknown names.
func (m *Monitor) RunSingleCheck(ctx context.Context, name string) *Result {
	m.mu.Lock()
	check, ok := m.checks[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	result := m.runAndStore(ctx, check)
	return &result
}

// runAndStore executes a check against its timeout budget and records the
// result last-write-wins. Concurrent runs of the same name are an accepted
// race; whichever finishes last owns the stored result.
func (m *Monitor) runAndStore(ctx context.Context, check Check) Result {
	result := executeCheck(ctx, check)

	m.mu.Lock()
	if !m.destroyed {
		m.results[check.Name] = result
	}
	m.mu.Unlock()

	return result
}

// executeCheck races the check against its timeout. The context handed to
// the check is cancelled when the timeout wins, so cooperative checks stop;
// a check that ignores cancellation keeps running but its outcome is dropped.
func executeCheck(ctx context.Context, check Check) Result {
	runCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	started := time.Now()
	outcomeCh := make(chan Outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- Outcome{Status: StatusUnhealthy, Err: fmt.Errorf("check panicked: %v", r)}
			}
		}()
		outcomeCh <- check.Check(runCtx)
	}()

	result := Result{Name: check.Name, Timestamp: time.Now()}

	select {
	case outcome := <-outcomeCh:
		result.Duration = time.Since(started)
		result.Details = outcome.Details
		result.Status = outcome.Status
		if outcome.Err != nil {
			result.Error = outcome.Err.Error()
		}
		if !outcome.Status.known() {
			result.Status = StatusUnhealthy
			result.Error = fmt.Sprintf("check returned invalid status %q", string(outcome.Status))
		}
	case <-runCtx.Done():
		result.Duration = time.Since(started)
		result.Status = StatusUnhealthy
		result.Error = fmt.Sprintf("health check %q timed out after %s", check.Name, check.Timeout)
	}

	result.Timestamp = time.Now()
	return result
}

// Results returns a copy of the last result per check.
func (m *Monitor) Results() map[string]Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Result, len(m.results))
	for name, result := range m.results {
		out[name] = result
	}
	return out
}

// GetSystemHealth aggregates the stored results. A critical unhealthy check
// forces the aggregate unhealthy; a critical degraded check, or any
// non-critical degraded/unhealthy check, escalates no further than degraded.
func (m *Monitor) GetSystemHealth() SystemHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	overall := StatusHealthy
	components := make(map[string]Result, len(m.results))
	summary := Summary{UptimeMillis: time.Since(m.startedAt).Milliseconds()}

	for name, result := range m.results {
		components[name] = result
		summary.Total++

		critical := m.checks[name].Critical

		switch result.Status {
		case StatusHealthy:
			summary.Healthy++
		case StatusDegraded:
			summary.Degraded++
			if critical && overall == StatusHealthy {
				overall = StatusDegraded
			}
		case StatusUnhealthy:
			summary.Unhealthy++
			if critical {
				overall = StatusUnhealthy
			} else if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	return SystemHealth{
		Status:     overall,
		Components: components,
		Summary:    summary,
	}
}

// SetEnabled starts or stops scheduling. Disabling cancels every schedule but
// keeps registrations and last results; enabling reschedules all checks.
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	if m.destroyed || m.enabled == enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = enabled

	if !enabled {
		for name, stop := range m.schedules {
			close(stop)
			delete(m.schedules, name)
		}
		m.mu.Unlock()
		return
	}

	pending := make([]Check, 0, len(m.checks))
	for _, check := range m.checks {
		if _, scheduled := m.schedules[check.Name]; !scheduled {
			stop := make(chan struct{})
			m.schedules[check.Name] = stop
			pending = append(pending, check)
		}
	}
	stops := make([]chan struct{}, 0, len(pending))
	for _, check := range pending {
		stops = append(stops, m.schedules[check.Name])
	}
	m.mu.Unlock()

	for i, check := range pending {
		m.wg.Add(1)
		go m.schedule(check, stops[i])
	}
}

// Uptime reports time since monitor construction.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// Destroy cancels every schedule and clears registries and results.
// Idempotent.
func (m *Monitor) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true

	for name, stop := range m.schedules {
		close(stop)
		delete(m.schedules, name)
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.checks = make(map[string]Check)
	m.results = make(map[string]Result)
	m.mu.Unlock()
}
