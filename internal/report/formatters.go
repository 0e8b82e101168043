package report

import (
	"fmt"
	"html"
	"strconv"
	"time"
)

// variablesFor flattens the report payload into the string variables the
// default templates reference. Values the payload does not carry simply stay
// absent, which leaves their placeholders literal in the rendered output.
func variablesFor(data Data) map[string]string {
	vars := map[string]string{
		"title":       html.EscapeString(data.Title),
		"generatedAt": data.GeneratedAt.Format(time.RFC3339),
		"rangeStart":  data.TimeRange.Start.Format(time.RFC3339),
		"rangeEnd":    data.TimeRange.End.Format(time.RFC3339),
	}

	switch data.Type {
	case TypeTestExecution:
		formatTestExecution(vars, data.Data)
	case TypeHealingSummary:
		formatHealingSummary(vars, data.Data)
	case TypeSystemHealth:
		formatSystemHealth(vars, data.Data)
	case TypePerformance:
		formatPerformance(vars, data.Data)
	}

	return vars
}

func formatTestExecution(vars map[string]string, payload map[string]interface{}) {
	copyString(vars, payload, "totalTests")
	copyString(vars, payload, "passed")
	copyString(vars, payload, "failed")
	copyString(vars, payload, "skipped")

	total := asFloat(payload["totalTests"])
	passed := asFloat(payload["passed"])
	if total > 0 {
		vars["passRate"] = fmt.Sprintf("%.1f%%", passed/total*100)
	} else {
		vars["passRate"] = "n/a"
	}

	rows := ""
	for _, item := range asSlice(payload["results"]) {
		row := asMap(item)
		rows += fmt.Sprintf(
			"<tr><td>%s</td><td class=\"%s\">%s</td><td>%s</td><td>%s</td></tr>",
			escape(row["name"]), escape(row["status"]), escape(row["status"]),
			escape(row["duration"]), escape(row["engine"]),
		)
	}
	vars["resultsTable"] = rows
}

func formatHealingSummary(vars map[string]string, payload map[string]interface{}) {
	copyString(vars, payload, "totalAttempts")
	copyString(vars, payload, "successful")
	copyString(vars, payload, "failed")

	total := asFloat(payload["totalAttempts"])
	successful := asFloat(payload["successful"])
	if total > 0 {
		vars["successRate"] = fmt.Sprintf("%.1f%%", successful/total*100)
	} else {
		vars["successRate"] = "n/a"
	}

	rows := ""
	for _, item := range asSlice(payload["strategies"]) {
		row := asMap(item)
		rows += fmt.Sprintf(
			"<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			escape(row["name"]), escape(row["attempts"]),
			escape(row["successes"]), escape(row["avgConfidence"]),
		)
	}
	vars["strategiesTable"] = rows
}

func formatSystemHealth(vars map[string]string, payload map[string]interface{}) {
	copyString(vars, payload, "overallStatus")
	copyString(vars, payload, "healthyCount")
	copyString(vars, payload, "degradedCount")
	copyString(vars, payload, "unhealthyCount")
	copyString(vars, payload, "uptime")

	rows := ""
	for _, item := range asSlice(payload["components"]) {
		row := asMap(item)
		rows += fmt.Sprintf(
			"<tr><td>%s</td><td class=\"%s\">%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			escape(row["name"]), escape(row["status"]), escape(row["status"]),
			escape(row["duration"]), escape(row["timestamp"]), escape(row["error"]),
		)
	}
	vars["componentsTable"] = rows
}

func formatPerformance(vars map[string]string, payload map[string]interface{}) {
	copyString(vars, payload, "avgResponseTime")
	copyString(vars, payload, "p95ResponseTime")
	copyString(vars, payload, "throughput")
	copyString(vars, payload, "errorRate")

	rows := ""
	for _, item := range asSlice(payload["metrics"]) {
		row := asMap(item)
		rows += fmt.Sprintf(
			"<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			escape(row["name"]), escape(row["type"]),
			escape(row["samples"]), escape(row["lastValue"]),
		)
	}
	vars["metricsTable"] = rows
}

func copyString(vars map[string]string, payload map[string]interface{}, key string) {
	if value, ok := payload[key]; ok {
		vars[key] = escape(value)
	}
}

func escape(value interface{}) string {
	return html.EscapeString(stringify(value))
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func asSlice(value interface{}) []interface{} {
	if s, ok := value.([]interface{}); ok {
		return s
	}
	return nil
}

func asMap(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
