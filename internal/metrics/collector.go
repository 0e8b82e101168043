package metrics

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dreschagin/observability-core/pkg/config"
	"github.com/google/uuid"
)

// Type tags a registration and every record produced under it.
type Type string

const (
	TypeCounter   Type = "counter"
	TypeGauge     Type = "gauge"
	TypeHistogram Type = "histogram"
	TypeTimer     Type = "timer"
)

// Registration declares the existence and shape of a metric name. Recording
// under a name without a matching registration is dropped with a warning.
type Registration struct {
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Description string    `json:"description"`
	Labels      []string  `json:"labels,omitempty"`  // expected label keys, advisory only
	Buckets     []float64 `json:"buckets,omitempty"` // histogram boundaries, ascending
}

// Record is one immutable observation appended to a series. Different label
// sets under the same name co-exist as separate records.
type Record struct {
	Name      string             `json:"name"`
	Type      Type               `json:"type"`
	Value     float64            `json:"value,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Labels    map[string]string  `json:"labels,omitempty"`
	Buckets   map[string]float64 `json:"buckets,omitempty"` // histogram: le_<boundary> -> 0/1
	Sum       float64            `json:"sum,omitempty"`     // histogram: observed value
	Count     int64              `json:"count,omitempty"`   // histogram: always 1 per observation
	Duration  float64            `json:"duration,omitempty"`
	Unit      string             `json:"unit,omitempty"`
}

// Snapshot is the flattened view returned by GetAllMetrics.
type Snapshot struct {
	CollectionInterval string    `json:"collectionInterval"`
	TotalCount         int       `json:"totalCount"`
	Environment        string    `json:"environment"`
	GeneratedAt        time.Time `json:"generatedAt"`
	Metrics            []Record  `json:"metrics"`
}

// Exporter receives every appended record, best-effort. A failing exporter
// never blocks or fails the recording call.
type Exporter interface {
	Publish(ctx context.Context, record Record) error
}

type pendingTimer struct {
	name    string
	labels  map[string]string
	started time.Time
}

// Collector maintains named, typed, labeled in-memory series with
// retention-based pruning and a periodic self-collection tick.
type Collector struct {
	mu              sync.Mutex
	enabled         bool
	interval        time.Duration
	retentionDays   int
	maxSeriesLength int
	environment     string

	registrations map[string]Registration
	series        map[string][]Record
	pendingTimers map[string]pendingTimer

	exporter Exporter

	started   bool
	destroyed bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewCollector(cfg config.MetricsConfig) *Collector {
	c := &Collector{
		enabled:         cfg.Enabled,
		interval:        cfg.CollectionInterval,
		retentionDays:   cfg.RetentionDays,
		maxSeriesLength: cfg.MaxSeriesLength,
		environment:     cfg.Environment,
		registrations:   make(map[string]Registration),
		series:          make(map[string][]Record),
		pendingTimers:   make(map[string]pendingTimer),
		stopCh:          make(chan struct{}),
	}

	for _, reg := range defaultRegistrations() {
		c.register(reg)
	}

	return c
}

// Register upserts a registration by name and initializes an empty series for
// new names. Idempotent.
func (c *Collector) Register(reg Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.register(reg)
}

func (c *Collector) register(reg Registration) {
	c.registrations[reg.Name] = reg
	if _, exists := c.series[reg.Name]; !exists {
		c.series[reg.Name] = make([]Record, 0)
	}
}

// SetEnabled toggles recording globally; existing series are kept.
func (c *Collector) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// SetExporter attaches a best-effort remote exporter for appended records.
func (c *Collector) SetExporter(exporter Exporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exporter = exporter
}

// IncrementCounter appends a counter record. Unregistered names and type
// mismatches warn and no-op; a disabled collector silently no-ops.
func (c *Collector) IncrementCounter(name string, labels map[string]string, value float64) {
	c.record(name, TypeCounter, func(reg Registration) Record {
		return Record{Name: name, Type: TypeCounter, Value: value, Timestamp: time.Now(), Labels: copyLabels(labels)}
	})
}

// SetGauge appends a gauge record with the current value.
func (c *Collector) SetGauge(name string, labels map[string]string, value float64) {
	c.record(name, TypeGauge, func(reg Registration) Record {
		return Record{Name: name, Type: TypeGauge, Value: value, Timestamp: time.Now(), Labels: copyLabels(labels)}
	})
}

// ObserveHistogram appends one discrete histogram observation: cumulative 0/1
// bucket flags per configured boundary plus an always-1 le_+Inf bucket.
// Aggregation across observations happens at export time, not here.
func (c *Collector) ObserveHistogram(name string, labels map[string]string, value float64) {
	c.record(name, TypeHistogram, func(reg Registration) Record {
		buckets := make(map[string]float64, len(reg.Buckets)+1)
		for _, boundary := range reg.Buckets {
			flag := 0.0
			if value <= boundary {
				flag = 1.0
			}
			buckets[bucketKey(boundary)] = flag
		}
		buckets["le_+Inf"] = 1.0

		return Record{
			Name:      name,
			Type:      TypeHistogram,
			Timestamp: time.Now(),
			Labels:    copyLabels(labels),
			Buckets:   buckets,
			Sum:       value,
			Count:     1,
		}
	})
}

// record validates registration and type, appends and exports. The exporter
// call happens outside the lock so a slow exporter cannot stall recording.
func (c *Collector) record(name string, expected Type, build func(Registration) Record) {
	c.mu.Lock()
	if !c.enabled || c.destroyed {
		c.mu.Unlock()
		return
	}

	reg, ok := c.registrations[name]
	if !ok {
		c.mu.Unlock()
		fmt.Fprintf(os.Stderr, "metrics: dropping %s observation for unregistered metric %q\n", expected, name)
		return
	}
	if reg.Type != expected {
		c.mu.Unlock()
		fmt.Fprintf(os.Stderr, "metrics: dropping %s observation for %q registered as %s\n", expected, name, reg.Type)
		return
	}

	rec := build(reg)
	c.append(name, rec)
	exporter := c.exporter
	c.mu.Unlock()

	if exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := exporter.Publish(ctx, rec); err != nil {
			fmt.Fprintf(os.Stderr, "metrics: exporter publish failed for %q: %v\n", name, err)
		}
		cancel()
	}
}

// append assumes the lock is held. The count cap bounds growth between
// pruning ticks under bursty load.
func (c *Collector) append(name string, rec Record) {
	s := append(c.series[name], rec)
	if c.maxSeriesLength > 0 && len(s) > c.maxSeriesLength {
		s = s[len(s)-c.maxSeriesLength:]
	}
	c.series[name] = s
}

// StartTimer records a high-resolution start time and returns its id.
func (c *Collector) StartTimer(name string, labels map[string]string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || c.destroyed {
		return ""
	}

	id := uuid.New().String()
	c.pendingTimers[id] = pendingTimer{name: name, labels: copyLabels(labels), started: time.Now()}
	return id
}

// EndTimer computes the elapsed duration for a pending timer, appends a timer
// record when the name is registered, and bridges into a histogram named
// "<name>_duration_seconds" when one is registered. Unknown ids,
// unregistered names and non-timer registrations warn and no-op.
func (c *Collector) EndTimer(timerID, name string) {
	c.mu.Lock()

	if !c.enabled || c.destroyed {
		c.mu.Unlock()
		return
	}

	pending, ok := c.pendingTimers[timerID]
	if !ok {
		c.mu.Unlock()
		if timerID != "" {
			fmt.Fprintf(os.Stderr, "metrics: unknown timer id %q for %q\n", timerID, name)
		}
		return
	}
	delete(c.pendingTimers, timerID)

	elapsed := time.Since(pending.started)
	durationMs := float64(elapsed.Nanoseconds()) / 1e6

	reg, registered := c.registrations[name]
	if registered && reg.Type == TypeTimer {
		c.append(name, Record{
			Name:      name,
			Type:      TypeTimer,
			Timestamp: time.Now(),
			Labels:    pending.labels,
			Duration:  durationMs,
			Unit:      "ms",
		})
	} else if !registered {
		c.mu.Unlock()
		fmt.Fprintf(os.Stderr, "metrics: dropping timer observation for unregistered metric %q\n", name)
		return
	} else {
		c.mu.Unlock()
		fmt.Fprintf(os.Stderr, "metrics: dropping timer observation for %q registered as %s\n", name, reg.Type)
		return
	}
	c.mu.Unlock()

	// Histogram bridge: the same timing lands in the seconds histogram without
	// the caller double-recording.
	histName := name + "_duration_seconds"
	c.mu.Lock()
	_, hasHist := c.registrations[histName]
	c.mu.Unlock()
	if hasHist {
		c.ObserveHistogram(histName, pending.labels, durationMs/1000.0)
	}
}

// Time runs fn under a timer. The timer ends even when fn fails; the error
// still propagates.
func (c *Collector) Time(name string, labels map[string]string, fn func() error) error {
	id := c.StartTimer(name, labels)
	defer c.EndTimer(id, name)
	return fn()
}

// TimeAsync is Time for context-aware work.
func (c *Collector) TimeAsync(ctx context.Context, name string, labels map[string]string, fn func(context.Context) error) error {
	id := c.StartTimer(name, labels)
	defer c.EndTimer(id, name)
	return fn(ctx)
}

// GetAllMetrics flattens every series into one snapshot envelope.
func (c *Collector) GetAllMetrics() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]Record, 0)
	for _, name := range names {
		all = append(all, c.series[name]...)
	}

	return Snapshot{
		CollectionInterval: c.interval.String(),
		TotalCount:         len(all),
		Environment:        c.environment,
		GeneratedAt:        time.Now(),
		Metrics:            all,
	}
}

// Registrations returns the declared metric shapes, sorted by name.
func (c *Collector) Registrations() []Registration {
	c.mu.Lock()
	defer c.mu.Unlock()

	regs := make([]Registration, 0, len(c.registrations))
	for _, reg := range c.registrations {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	return regs
}

// SeriesCount reports how many records are currently retained across all
// series. Used by the manager's self-monitor check.
func (c *Collector) SeriesCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, s := range c.series {
		total += len(s)
	}
	return total
}

// Prune drops records older than the retention window from every series.
func (c *Collector) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
}

func (c *Collector) pruneLocked() {
	cutoff := time.Now().AddDate(0, 0, -c.retentionDays)
	for name, s := range c.series {
		kept := s[:0]
		for _, rec := range s {
			if rec.Timestamp.After(cutoff) {
				kept = append(kept, rec)
			}
		}
		c.series[name] = kept
	}
}

// SetRetention updates the pruning window for subsequent ticks.
func (c *Collector) SetRetention(days int) {
	if days < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retentionDays = days
}

// Destroy stops the collection tick and clears all state. Idempotent.
func (c *Collector) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	started := c.started
	c.mu.Unlock()

	close(c.stopCh)
	if started {
		c.wg.Wait()
	}

	c.mu.Lock()
	c.series = make(map[string][]Record)
	c.pendingTimers = make(map[string]pendingTimer)
	c.mu.Unlock()
}

func bucketKey(boundary float64) string {
	return "le_" + strconv.FormatFloat(boundary, 'g', -1, 64)
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
