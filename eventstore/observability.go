package eventstore

import (
	"context"
	"time"
)

// Logger is the logging contract of all engines.
// It matches the method set of *slog.Logger, and adapters for other loggers are trivial.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is an optional logging contract for loggers that pull correlation data out of the context.
// Engines prefer it over Logger when both are configured.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector receives durations, counters and values of engine operations.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// Metric names and label keys shared by all engines.
const (
	MetricQueryDuration       = "eventstore_query_duration_seconds"
	MetricAppendDuration      = "eventstore_append_duration_seconds"
	MetricEventsQueried       = "eventstore_events_queried_total"
	MetricEventsAppended      = "eventstore_events_appended_total"
	MetricConcurrencyConflict = "eventstore_concurrency_conflicts_total"
	MetricDatabaseErrors      = "eventstore_database_errors_total"

	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelEngine    = "engine"

	StatusSuccess = "success"
	StatusError   = "error"
)
