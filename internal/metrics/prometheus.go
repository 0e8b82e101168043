package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PrometheusMetrics renders every registration with at least one retained
// record in Prometheus text exposition format. Each retained record emits its
// own line: this is an export of the raw series, aggregation is left to the
// scraping side.
func (c *Collector) PrometheusMetrics() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.registrations))
	for name := range c.registrations {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		records := c.series[name]
		if len(records) == 0 {
			continue
		}
		reg := c.registrations[name]

		fmt.Fprintf(&b, "# HELP %s %s\n", name, reg.Description)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, reg.Type)

		for _, rec := range records {
			switch reg.Type {
			case TypeHistogram:
				writeHistogramLines(&b, name, reg, rec)
			case TypeTimer:
				fmt.Fprintf(&b, "%s%s %s\n", name, renderLabels(rec.Labels, "", ""), formatValue(rec.Duration))
			default:
				fmt.Fprintf(&b, "%s%s %s\n", name, renderLabels(rec.Labels, "", ""), formatValue(rec.Value))
			}
		}
	}

	return b.String()
}

func writeHistogramLines(b *strings.Builder, name string, reg Registration, rec Record) {
	for _, boundary := range reg.Buckets {
		le := strconv.FormatFloat(boundary, 'g', -1, 64)
		fmt.Fprintf(b, "%s_bucket%s %s\n",
			name,
			renderLabels(rec.Labels, "le", le),
			formatValue(rec.Buckets[bucketKey(boundary)]),
		)
	}
	fmt.Fprintf(b, "%s_bucket%s %s\n", name, renderLabels(rec.Labels, "le", "+Inf"), formatValue(rec.Buckets["le_+Inf"]))
	fmt.Fprintf(b, "%s_sum%s %s\n", name, renderLabels(rec.Labels, "", ""), formatValue(rec.Sum))
	fmt.Fprintf(b, "%s_count%s %d\n", name, renderLabels(rec.Labels, "", ""), rec.Count)
}

// renderLabels produces {k="v",...} with keys sorted, optionally appending an
// extra label (used for the histogram le label). Empty label sets render as
// an empty string.
func renderLabels(labels map[string]string, extraKey, extraValue string) string {
	if len(labels) == 0 && extraKey == "" {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	if extraKey != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", extraKey, extraValue))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
