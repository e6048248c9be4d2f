package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelMetricsClient implements MetricsClient over an otel Meter, lazily
// creating one instrument per metric name (otel instruments are
// write-once; the core calls IncrementCounter et al. by name repeatedly,
// so each named instrument is memoized behind a mutex).
type otelMetricsClient struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	gauges     map[string]metric.Float64Gauge
	histograms map[string]metric.Float64Histogram
}

// NewMetricsClient creates a MetricsClient backed by the given otel
// Meter (typically obtained from a MeterProvider at composition-root
// wiring time).
func NewMetricsClient(meter metric.Meter) MetricsClient {
	return &otelMetricsClient{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func toAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func (m *otelMetricsClient) counter(name string) metric.Float64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c, _ := m.meter.Float64Counter(name)
	m.counters[name] = c
	return c
}

func (m *otelMetricsClient) gauge(name string) metric.Float64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g, _ := m.meter.Float64Gauge(name)
	m.gauges[name] = g
	return g
}

func (m *otelMetricsClient) histogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h
	}
	h, _ := m.meter.Float64Histogram(name)
	m.histograms[name] = h
	return h
}

// IncrementCounter increments name by value with no labels.
func (m *otelMetricsClient) IncrementCounter(name string, value float64) {
	m.counter(name).Add(context.Background(), value)
}

// IncrementCounterWithLabels increments name by value with the given labels.
func (m *otelMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
	m.counter(name).Add(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

// RecordGauge sets name to value with the given labels.
func (m *otelMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	m.gauge(name).Record(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

// RecordHistogram observes value for name with the given labels.
func (m *otelMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	m.histogram(name).Record(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

// noOpMetricsClient discards everything.
type noOpMetricsClient struct{}

func (noOpMetricsClient) IncrementCounter(name string, value float64)               {}
func (noOpMetricsClient) IncrementCounterWithLabels(string, float64, map[string]string) {}
func (noOpMetricsClient) RecordGauge(string, float64, map[string]string)            {}
func (noOpMetricsClient) RecordHistogram(string, float64, map[string]string)        {}

// NewNoopMetricsClient creates a MetricsClient that discards everything.
func NewNoopMetricsClient() MetricsClient {
	return noOpMetricsClient{}
}
