package doubles

import (
	"fmt"
	"sync"
	"time"
)

// LogRecord is one captured log call.
type LogRecord struct {
	Level   string
	Message string
	Args    []any
}

// LoggerSpy captures all log calls.
type LoggerSpy struct {
	mu      sync.Mutex
	records []LogRecord
}

func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

func (l *LoggerSpy) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *LoggerSpy) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *LoggerSpy) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *LoggerSpy) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *LoggerSpy) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, LogRecord{Level: level, Message: msg, Args: args})
}

// Records returns a copy of all captured log calls.
func (l *LoggerSpy) Records() []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]LogRecord(nil), l.records...)
}

// HasRecord reports whether a call with that level and message was captured.
func (l *LoggerSpy) HasRecord(level, msg string) bool {
	for _, r := range l.Records() {
		if r.Level == level && r.Message == msg {
			return true
		}
	}

	return false
}

// MetricRecord is one captured metrics call.
type MetricRecord struct {
	Kind     string
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// MetricsCollectorSpy captures all metrics calls.
type MetricsCollectorSpy struct {
	mu      sync.Mutex
	records []MetricRecord
}

func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (m *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	m.add(MetricRecord{Kind: "duration", Metric: metric, Duration: duration, Labels: labels})
}

func (m *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	m.add(MetricRecord{Kind: "counter", Metric: metric, Labels: labels})
}

func (m *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	m.add(MetricRecord{Kind: "value", Metric: metric, Value: value, Labels: labels})
}

func (m *MetricsCollectorSpy) add(r MetricRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, r)
}

// Records returns all captured calls for the metric.
func (m *MetricsCollectorSpy) Records(metric string) []MetricRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []MetricRecord

	for _, r := range m.records {
		if r.Metric == metric {
			found = append(found, r)
		}
	}

	return found
}

// CounterValue sums the counter increments of the metric whose labels contain all the given labels.
func (m *MetricsCollectorSpy) CounterValue(metric string, labels map[string]string) int {
	count := 0

	for _, r := range m.Records(metric) {
		if r.Kind == "counter" && containsLabels(r.Labels, labels) {
			count++
		}
	}

	return count
}

func containsLabels(actual, expected map[string]string) bool {
	for k, v := range expected {
		if actual[k] != v {
			return false
		}
	}

	return true
}

func (r MetricRecord) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.Metric, r.Labels)
}
