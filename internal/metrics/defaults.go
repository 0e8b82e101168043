package metrics

// defaultRegistrations is the fixed vocabulary of metric names the rest of
// the harness writes to without per-call registration: test execution,
// healing, HTTP traffic and system resources.
func defaultRegistrations() []Registration {
	return []Registration{
		{
			Name:        "test_executions_total",
			Type:        TypeCounter,
			Description: "Total number of test executions.",
			Labels:      []string{"engine", "status"},
		},
		{
			Name:        "test_execution_duration_seconds",
			Type:        TypeHistogram,
			Description: "Test execution duration in seconds.",
			Labels:      []string{"engine"},
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		{
			Name:        "test_execution",
			Type:        TypeTimer,
			Description: "Wall-clock timing of individual test executions.",
			Labels:      []string{"engine"},
		},
		{
			Name:        "healing_attempts_total",
			Type:        TypeCounter,
			Description: "Total number of locator healing attempts.",
			Labels:      []string{"strategy", "status"},
		},
		{
			Name:        "healing_success_rate",
			Type:        TypeGauge,
			Description: "Rolling healing success rate per strategy.",
			Labels:      []string{"strategy"},
		},
		{
			Name:        "healing_confidence",
			Type:        TypeHistogram,
			Description: "Confidence scores of accepted healing candidates.",
			Labels:      []string{"strategy"},
			Buckets:     []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99},
		},
		{
			Name:        "http_requests_total",
			Type:        TypeCounter,
			Description: "Total number of HTTP requests handled.",
			Labels:      []string{"method", "route", "status"},
		},
		{
			Name:        "http_request_duration_seconds",
			Type:        TypeHistogram,
			Description: "HTTP request duration in seconds.",
			Labels:      []string{"method", "route"},
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		{
			Name:        "system_memory_usage_bytes",
			Type:        TypeGauge,
			Description: "Process memory usage in bytes by type.",
			Labels:      []string{"type"},
		},
		{
			Name:        "system_cpu_usage_percent",
			Type:        TypeGauge,
			Description: "Process CPU usage percentage.",
		},
		{
			Name:        "system_goroutines",
			Type:        TypeGauge,
			Description: "Number of live goroutines.",
		},
		{
			Name:        "runtime_scheduler_latency_ms",
			Type:        TypeGauge,
			Description: "Scheduler wakeup latency in milliseconds.",
		},
	}
}
