package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// OTelFactory adapts an OpenTelemetry meter to MetricFactory. Instruments
// are created once per name and reused.
type OTelFactory struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]*otelCounter
	histograms map[string]*otelHistogram
}

// NewOTelFactory creates a MetricFactory backed by meter.
func NewOTelFactory(meter metric.Meter) *OTelFactory {
	return &OTelFactory{
		meter:      meter,
		counters:   make(map[string]*otelCounter),
		histograms: make(map[string]*otelHistogram),
	}
}

// Counter implements MetricFactory. If the meter rejects the name the
// counter records nothing.
func (f *OTelFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	var inst metric.Float64Counter = noop.Float64Counter{}
	if created, err := f.meter.Float64Counter(name); err == nil {
		inst = created
	}
	c := &otelCounter{inst: inst}
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *OTelFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	var inst metric.Float64Histogram = noop.Float64Histogram{}
	if created, err := f.meter.Float64Histogram(name); err == nil {
		inst = created
	}
	h := &otelHistogram{inst: inst}
	f.histograms[name] = h
	return h
}

type otelCounter struct {
	inst metric.Float64Counter
}

func (c *otelCounter) Inc() { c.Add(1) }

func (c *otelCounter) Add(v float64) {
	c.inst.Add(context.Background(), v)
}

type otelHistogram struct {
	inst metric.Float64Histogram
}

func (h *otelHistogram) Observe(v float64) {
	h.inst.Record(context.Background(), v)
}
