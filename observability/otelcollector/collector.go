// Package otelcollector records library, persistence and event store metrics with the OpenTelemetry metrics API.
//
// Durations become float64 histograms in seconds, counters become int64 counters and values become float64 gauges.
// Instruments are created on first use and cached by name.
package otelcollector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the meter name the CLI uses.
const InstrumentationName = "github.com/AntonStoeckl/library-circulation-go"

var ErrNilMeter = errors.New("meter must not be nil")

// Collector implements the MetricsCollector interfaces of eventstore, library and shell.
// Instruments that cannot be created are skipped and reported to the OTel error handler.
type Collector struct {
	meter metric.Meter

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
}

func New(meter metric.Meter) (*Collector, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	return &Collector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}, nil
}

func (c *Collector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	histogram, ok := instrument(c, c.histograms, name, func() (metric.Float64Histogram, error) {
		return c.meter.Float64Histogram(name, metric.WithDescription(description(name)), metric.WithUnit("s"))
	})
	if !ok {
		return
	}

	histogram.Record(context.Background(), duration.Seconds(), metric.WithAttributes(attributes(labels)...))
}

func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	counter, ok := instrument(c, c.counters, name, func() (metric.Int64Counter, error) {
		return c.meter.Int64Counter(name, metric.WithDescription(description(name)))
	})
	if !ok {
		return
	}

	counter.Add(context.Background(), 1, metric.WithAttributes(attributes(labels)...))
}

func (c *Collector) RecordValue(name string, value float64, labels map[string]string) {
	gauge, ok := instrument(c, c.gauges, name, func() (metric.Float64Gauge, error) {
		return c.meter.Float64Gauge(name, metric.WithDescription(description(name)))
	})
	if !ok {
		return
	}

	gauge.Record(context.Background(), value, metric.WithAttributes(attributes(labels)...))
}

func instrument[T any](c *Collector, cache map[string]T, name string, create func() (T, error)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := cache[name]; ok {
		return existing, true
	}

	created, err := create()
	if err != nil {
		otel.Handle(err)

		var zero T
		return zero, false
	}

	cache[name] = created

	return created, true
}

func attributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return attrs
}

func description(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
