package report

func defaultTemplates() []Template {
	return []Template{
		{
			ID:          "test-execution-default",
			Name:        "Test Execution Report",
			Description: "Pass/fail breakdown of a test run with per-test results",
			Type:        TypeTestExecution,
			Variables: []string{
				"title", "generatedAt", "rangeStart", "rangeEnd",
				"totalTests", "passed", "failed", "skipped", "passRate",
				"resultsTable",
			},
			Template: `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
  <style>
    body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a2e; }
    h1 { border-bottom: 2px solid #0f3460; padding-bottom: 0.5rem; }
    .summary { display: flex; gap: 1.5rem; margin: 1rem 0; }
    .stat { background: #f5f6fa; border-radius: 6px; padding: 0.75rem 1.25rem; }
    .stat .value { font-size: 1.5rem; font-weight: 700; }
    .passed { color: #1e8e3e; } .failed { color: #d93025; } .skipped { color: #9aa0a6; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { border: 1px solid #dadce0; padding: 0.5rem 0.75rem; text-align: left; }
    th { background: #0f3460; color: #fff; }
    .meta { color: #5f6368; font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>{{title}}</h1>
  <p class="meta">Generated {{generatedAt}} &middot; window {{rangeStart}} &ndash; {{rangeEnd}}</p>
  <div class="summary">
    <div class="stat"><div class="value">{{totalTests}}</div>total</div>
    <div class="stat"><div class="value passed">{{passed}}</div>passed</div>
    <div class="stat"><div class="value failed">{{failed}}</div>failed</div>
    <div class="stat"><div class="value skipped">{{skipped}}</div>skipped</div>
    <div class="stat"><div class="value">{{passRate}}</div>pass rate</div>
  </div>
  <table>
    <thead><tr><th>Test</th><th>Status</th><th>Duration</th><th>Engine</th></tr></thead>
    <tbody>{{resultsTable}}</tbody>
  </table>
</body>
</html>`,
		},
		{
			ID:          "healing-summary-default",
			Name:        "Healing Summary Report",
			Description: "Self-healing attempt outcomes grouped by strategy",
			Type:        TypeHealingSummary,
			Variables: []string{
				"title", "generatedAt", "rangeStart", "rangeEnd",
				"totalAttempts", "successful", "failed", "successRate",
				"strategiesTable",
			},
			Template: `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
  <style>
    body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a2e; }
    h1 { border-bottom: 2px solid #0f3460; padding-bottom: 0.5rem; }
    .summary { display: flex; gap: 1.5rem; margin: 1rem 0; }
    .stat { background: #f5f6fa; border-radius: 6px; padding: 0.75rem 1.25rem; }
    .stat .value { font-size: 1.5rem; font-weight: 700; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { border: 1px solid #dadce0; padding: 0.5rem 0.75rem; text-align: left; }
    th { background: #0f3460; color: #fff; }
    .meta { color: #5f6368; font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>{{title}}</h1>
  <p class="meta">Generated {{generatedAt}} &middot; window {{rangeStart}} &ndash; {{rangeEnd}}</p>
  <div class="summary">
    <div class="stat"><div class="value">{{totalAttempts}}</div>attempts</div>
    <div class="stat"><div class="value">{{successful}}</div>successful</div>
    <div class="stat"><div class="value">{{failed}}</div>failed</div>
    <div class="stat"><div class="value">{{successRate}}</div>success rate</div>
  </div>
  <table>
    <thead><tr><th>Strategy</th><th>Attempts</th><th>Successes</th><th>Avg confidence</th></tr></thead>
    <tbody>{{strategiesTable}}</tbody>
  </table>
</body>
</html>`,
		},
		{
			ID:          "system-health-default",
			Name:        "System Health Report",
			Description: "Component health statuses with an overall verdict",
			Type:        TypeSystemHealth,
			Variables: []string{
				"title", "generatedAt", "rangeStart", "rangeEnd",
				"overallStatus", "healthyCount", "degradedCount", "unhealthyCount",
				"uptime", "componentsTable",
			},
			Template: `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
  <style>
    body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a2e; }
    h1 { border-bottom: 2px solid #0f3460; padding-bottom: 0.5rem; }
    .verdict { font-size: 1.25rem; margin: 1rem 0; }
    .healthy { color: #1e8e3e; } .degraded { color: #f9ab00; } .unhealthy { color: #d93025; }
    .summary { display: flex; gap: 1.5rem; margin: 1rem 0; }
    .stat { background: #f5f6fa; border-radius: 6px; padding: 0.75rem 1.25rem; }
    .stat .value { font-size: 1.5rem; font-weight: 700; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { border: 1px solid #dadce0; padding: 0.5rem 0.75rem; text-align: left; }
    th { background: #0f3460; color: #fff; }
    .meta { color: #5f6368; font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>{{title}}</h1>
  <p class="meta">Generated {{generatedAt}} &middot; window {{rangeStart}} &ndash; {{rangeEnd}}</p>
  <p class="verdict">Overall status: <strong class="{{overallStatus}}">{{overallStatus}}</strong> &middot; uptime {{uptime}}</p>
  <div class="summary">
    <div class="stat"><div class="value healthy">{{healthyCount}}</div>healthy</div>
    <div class="stat"><div class="value degraded">{{degradedCount}}</div>degraded</div>
    <div class="stat"><div class="value unhealthy">{{unhealthyCount}}</div>unhealthy</div>
  </div>
  <table>
    <thead><tr><th>Component</th><th>Status</th><th>Duration</th><th>Checked at</th><th>Error</th></tr></thead>
    <tbody>{{componentsTable}}</tbody>
  </table>
</body>
</html>`,
		},
		{
			ID:          "performance-default",
			Name:        "Performance Report",
			Description: "Latency, throughput and resource usage over the window",
			Type:        TypePerformance,
			Variables: []string{
				"title", "generatedAt", "rangeStart", "rangeEnd",
				"avgResponseTime", "p95ResponseTime", "throughput", "errorRate",
				"metricsTable",
			},
			Template: `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
  <style>
    body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a2e; }
    h1 { border-bottom: 2px solid #0f3460; padding-bottom: 0.5rem; }
    .summary { display: flex; gap: 1.5rem; margin: 1rem 0; }
    .stat { background: #f5f6fa; border-radius: 6px; padding: 0.75rem 1.25rem; }
    .stat .value { font-size: 1.5rem; font-weight: 700; }
    table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
    th, td { border: 1px solid #dadce0; padding: 0.5rem 0.75rem; text-align: left; }
    th { background: #0f3460; color: #fff; }
    .meta { color: #5f6368; font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>{{title}}</h1>
  <p class="meta">Generated {{generatedAt}} &middot; window {{rangeStart}} &ndash; {{rangeEnd}}</p>
  <div class="summary">
    <div class="stat"><div class="value">{{avgResponseTime}}</div>avg response</div>
    <div class="stat"><div class="value">{{p95ResponseTime}}</div>p95 response</div>
    <div class="stat"><div class="value">{{throughput}}</div>throughput</div>
    <div class="stat"><div class="value">{{errorRate}}</div>error rate</div>
  </div>
  <table>
    <thead><tr><th>Metric</th><th>Type</th><th>Samples</th><th>Last value</th></tr></thead>
    <tbody>{{metricsTable}}</tbody>
  </table>
</body>
</html>`,
		},
	}
}
