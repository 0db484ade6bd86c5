// Package promcollector records the library's metrics in Prometheus.
//
// Collector satisfies the MetricsCollector interfaces of the eventstore, the Library and the retry helper.
// Metric vectors are registered lazily on first use, their label names are fixed by that first call:
// later calls with missing labels record them as empty, unknown labels are dropped.
package promcollector

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrNilRegisterer = errors.New("prometheus registerer must not be nil")

type vec[T any] struct {
	vec        T
	labelNames []string
}

// Collector lazily creates histogram, counter and gauge vectors.
type Collector struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	histograms map[string]vec[*prometheus.HistogramVec]
	counters   map[string]vec[*prometheus.CounterVec]
	gauges     map[string]vec[*prometheus.GaugeVec]
}

// Option configures a Collector.
type Option func(*Collector)

// WithBuckets sets the histogram buckets in seconds, the default is prometheus.DefBuckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Collector) {
		c.buckets = buckets
	}
}

func New(registerer prometheus.Registerer, options ...Option) (*Collector, error) {
	if registerer == nil {
		return nil, ErrNilRegisterer
	}

	c := &Collector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]vec[*prometheus.HistogramVec]),
		counters:   make(map[string]vec[*prometheus.CounterVec]),
		gauges:     make(map[string]vec[*prometheus.GaugeVec]),
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// RecordDuration observes the duration in seconds.
func (c *Collector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.histograms[metric]
	if !ok {
		names := labelNames(labels)
		candidate := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metric,
			Help:    helpText(metric),
			Buckets: c.buckets,
		}, names)

		h = vec[*prometheus.HistogramVec]{vec: register(c.registerer, candidate), labelNames: names}
		c.histograms[metric] = h
	}

	h.vec.WithLabelValues(labelValues(h.labelNames, labels)...).Observe(duration.Seconds())
}

func (c *Collector) IncrementCounter(metric string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cv, ok := c.counters[metric]
	if !ok {
		names := labelNames(labels)
		candidate := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metric,
			Help: helpText(metric),
		}, names)

		cv = vec[*prometheus.CounterVec]{vec: register(c.registerer, candidate), labelNames: names}
		c.counters[metric] = cv
	}

	cv.vec.WithLabelValues(labelValues(cv.labelNames, labels)...).Inc()
}

// RecordValue sets a gauge to the latest value.
func (c *Collector) RecordValue(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.gauges[metric]
	if !ok {
		names := labelNames(labels)
		candidate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metric,
			Help: helpText(metric),
		}, names)

		g = vec[*prometheus.GaugeVec]{vec: register(c.registerer, candidate), labelNames: names}
		c.gauges[metric] = g
	}

	g.vec.WithLabelValues(labelValues(g.labelNames, labels)...).Set(value)
}

// register returns the already registered collector if an equal one exists, e.g. after a restart of a component.
func register[T prometheus.Collector](registerer prometheus.Registerer, candidate T) T {
	if err := registerer.Register(candidate); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(T); ok {
				return existing
			}
		}
	}

	return candidate
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func labelValues(names []string, labels map[string]string) []string {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = labels[name]
	}

	return values
}

func helpText(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}
