package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

const (
	memoryDegradedPercent  = 70.0
	memoryUnhealthyPercent = 90.0

	latencyDegraded  = 50 * time.Millisecond
	latencyUnhealthy = 100 * time.Millisecond
)

// DefaultChecks is the built-in probe set covering the resources the harness
// actually depends on. They are not deep infrastructure checks; callers that
// need to wrap or re-register them can fetch the set themselves.
func DefaultChecks() []Check {
	return []Check{
		{Name: "memory_usage", Check: checkMemoryUsage, Timeout: 5 * time.Second, Interval: 30 * time.Second, Critical: true},
		{Name: "scheduler_latency", Check: checkSchedulerLatency, Timeout: 5 * time.Second, Interval: 30 * time.Second, Critical: true},
		{Name: "filesystem", Check: checkFilesystem, Timeout: 5 * time.Second, Interval: 60 * time.Second, Critical: true},
		{Name: "api_responsiveness", Check: checkAPIResponsiveness, Timeout: 5 * time.Second, Interval: 60 * time.Second, Critical: false},
		{Name: "engine_registry", Check: checkEngineRegistry, Timeout: 5 * time.Second, Interval: 60 * time.Second, Critical: false},
	}
}

func checkMemoryUsage(ctx context.Context) Outcome {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Outcome{Status: StatusUnhealthy, Err: fmt.Errorf("failed to read memory stats: %w", err)}
	}

	details := map[string]interface{}{
		"used_percent": vmStat.UsedPercent,
		"total_mb":     vmStat.Total / 1024 / 1024,
		"used_mb":      vmStat.Used / 1024 / 1024,
	}

	switch {
	case vmStat.UsedPercent >= memoryUnhealthyPercent:
		return Outcome{Status: StatusUnhealthy, Details: details, Err: fmt.Errorf("memory usage %.1f%% above %.0f%%", vmStat.UsedPercent, memoryUnhealthyPercent)}
	case vmStat.UsedPercent >= memoryDegradedPercent:
		return Outcome{Status: StatusDegraded, Details: details}
	default:
		return Outcome{Status: StatusHealthy, Details: details}
	}
}

func checkSchedulerLatency(ctx context.Context) Outcome {
	const probe = time.Millisecond

	start := time.Now()
	select {
	case <-time.After(probe):
	case <-ctx.Done():
		return Outcome{Status: StatusUnhealthy, Err: ctx.Err()}
	}
	lag := time.Since(start) - probe
	if lag < 0 {
		lag = 0
	}

	details := map[string]interface{}{"lag_ms": float64(lag.Nanoseconds()) / 1e6}

	switch {
	case lag >= latencyUnhealthy:
		return Outcome{Status: StatusUnhealthy, Details: details, Err: fmt.Errorf("scheduler lag %s above %s", lag, latencyUnhealthy)}
	case lag >= latencyDegraded:
		return Outcome{Status: StatusDegraded, Details: details}
	default:
		return Outcome{Status: StatusHealthy, Details: details}
	}
}

// checkFilesystem does a write/read/delete round-trip in the temp directory.
func checkFilesystem(ctx context.Context) Outcome {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("observability-health-%d", time.Now().UnixNano()))
	payload := []byte("health-check")

	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return Outcome{Status: StatusUnhealthy, Err: fmt.Errorf("write failed: %w", err)}
	}

	read, err := os.ReadFile(path)
	if err != nil {
		_ = os.Remove(path)
		return Outcome{Status: StatusUnhealthy, Err: fmt.Errorf("read failed: %w", err)}
	}
	if string(read) != string(payload) {
		_ = os.Remove(path)
		return Outcome{Status: StatusUnhealthy, Err: fmt.Errorf("read back %d bytes, expected %d", len(read), len(payload))}
	}

	if err := os.Remove(path); err != nil {
		return Outcome{Status: StatusDegraded, Err: fmt.Errorf("delete failed: %w", err)}
	}

	return Outcome{Status: StatusHealthy, Details: map[string]interface{}{"path": os.TempDir()}}
}

// checkAPIResponsiveness is a synthetic delay probe: a fixed deferral whose
// observed latency stands in for request handling responsiveness.
func checkAPIResponsiveness(ctx context.Context) Outcome {
	const delay = 10 * time.Millisecond

	start := time.Now()
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return Outcome{Status: StatusUnhealthy, Err: ctx.Err()}
	}
	observed := time.Since(start)

	details := map[string]interface{}{"latency_ms": float64(observed.Nanoseconds()) / 1e6}
	if observed > delay+latencyUnhealthy {
		return Outcome{Status: StatusDegraded, Details: details}
	}
	return Outcome{Status: StatusHealthy, Details: details}
}

// checkEngineRegistry is a placeholder until the engine registry exposes a
// real probe endpoint; it documents the contract for engine authors.
func checkEngineRegistry(ctx context.Context) Outcome {
	return Outcome{Status: StatusHealthy, Details: map[string]interface{}{"registered_engines": 0, "placeholder": true}}
}
