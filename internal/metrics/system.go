package metrics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Start launches the self-collection loop. Each tick records process memory
// and CPU gauges plus a scheduler-latency probe, then prunes every series to
// the retention window. A non-positive interval disables the loop entirely.
func (c *Collector) Start() {
	c.mu.Lock()
	if c.started || c.destroyed || c.interval <= 0 {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.collectLoop()
}

func (c *Collector) collectLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics: process handle unavailable, rss/cpu gauges disabled: %v\n", err)
	}

	for {
		select {
		case <-ticker.C:
			c.collectSystemMetrics(proc)
			c.Prune()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) collectSystemMetrics(proc *process.Process) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	c.SetGauge("system_memory_usage_bytes", map[string]string{"type": "heap_used"}, float64(memStats.HeapAlloc))
	c.SetGauge("system_memory_usage_bytes", map[string]string{"type": "heap_total"}, float64(memStats.HeapSys))
	c.SetGauge("system_memory_usage_bytes", map[string]string{"type": "stack"}, float64(memStats.StackSys))

	if proc != nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			c.SetGauge("system_memory_usage_bytes", map[string]string{"type": "rss"}, float64(memInfo.RSS))
		}
		if cpuPercent, err := proc.CPUPercent(); err == nil {
			c.SetGauge("system_cpu_usage_percent", nil, cpuPercent)
		}
	}

	c.SetGauge("system_goroutines", nil, float64(runtime.NumGoroutine()))
	c.SetGauge("runtime_scheduler_latency_ms", nil, measureSchedulerLatency())
}

// measureSchedulerLatency is the Go rendition of an event-loop lag probe: ask
// for a fixed sleep and report how far past it the scheduler woke us up.
func measureSchedulerLatency() float64 {
	const probe = time.Millisecond

	start := time.Now()
	time.Sleep(probe)
	lag := time.Since(start) - probe

	if lag < 0 {
		lag = 0
	}
	return float64(lag.Nanoseconds()) / 1e6
}
