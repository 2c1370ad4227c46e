package mqttq

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryMetrics is an in-memory implementation of Metrics, mostly useful
// in tests and for the CLI summary.
type MemoryMetrics struct {
	mu         sync.Mutex
	counters   map[string]*memoryValue
	gauges     map[string]*memoryValue
	histograms map[string]*memoryHistogram
}

// NewMemoryMetrics creates a new in-memory metrics instance.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		counters:   make(map[string]*memoryValue),
		gauges:     make(map[string]*memoryValue),
		histograms: make(map[string]*memoryHistogram),
	}
}

// labelsKey builds a stable key from the name and the sorted labels.
func labelsKey(name string, labels MetricLabels) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("|" + k + "=" + labels[k])
	}
	return b.String()
}

// Counter returns a counter metric.
func (m *MemoryMetrics) Counter(name string, labels MetricLabels) Counter {
	return m.value(m.counters, labelsKey(name, labels))
}

// Gauge returns a gauge metric.
func (m *MemoryMetrics) Gauge(name string, labels MetricLabels) Gauge {
	return m.value(m.gauges, labelsKey(name, labels))
}

func (m *MemoryMetrics) value(set map[string]*memoryValue, key string) *memoryValue {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := set[key]
	if !ok {
		v = &memoryValue{}
		set[key] = v
	}
	return v
}

// Histogram returns a histogram metric.
func (m *MemoryMetrics) Histogram(name string, labels MetricLabels) Histogram {
	key := labelsKey(name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.histograms[key]
	if !ok {
		h = &memoryHistogram{}
		m.histograms[key] = h
	}
	return h
}

// CounterValue returns the value of a counter, or 0 if it was never used.
func (m *MemoryMetrics) CounterValue(name string, labels MetricLabels) float64 {
	m.mu.Lock()
	v, ok := m.counters[labelsKey(name, labels)]
	m.mu.Unlock()

	if !ok {
		return 0
	}
	return v.Value()
}

// GaugeValue returns the value of a gauge, or 0 if it was never used.
func (m *MemoryMetrics) GaugeValue(name string, labels MetricLabels) float64 {
	m.mu.Lock()
	v, ok := m.gauges[labelsKey(name, labels)]
	m.mu.Unlock()

	if !ok {
		return 0
	}
	return v.Value()
}

// Snapshot returns every counter and gauge keyed by name and labels.
func (m *MemoryMetrics) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.counters)+len(m.gauges))
	for k, v := range m.counters {
		out[k] = v.Value()
	}
	for k, v := range m.gauges {
		out[k] = v.Value()
	}
	return out
}

// memoryValue backs both counters and gauges.
type memoryValue struct {
	mu    sync.Mutex
	value float64
}

func (v *memoryValue) Inc() { v.Add(1) }
func (v *memoryValue) Dec() { v.Add(-1) }

func (v *memoryValue) Add(delta float64) {
	v.mu.Lock()
	v.value += delta
	v.mu.Unlock()
}

func (v *memoryValue) Set(value float64) {
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()
}

func (v *memoryValue) Value() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

type memoryHistogram struct {
	mu    sync.Mutex
	count uint64
	sum   float64
}

func (h *memoryHistogram) Observe(value float64) {
	h.mu.Lock()
	h.count++
	h.sum += value
	h.mu.Unlock()
}

func (h *memoryHistogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

func (h *memoryHistogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *memoryHistogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}
