package postgresengine

import (
	"github.com/AntonStoeckl/library-circulation-go/eventstore"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithTableName sets the events table name, the default is "events".
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
//
// Debug level: SQL queries with execution timing
// Info level: event counts, durations, concurrency conflicts
// Warn level: cleanup failures
// Error level: failures that abort the operation.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger

		return nil
	}
}

// WithContextualLogger sets a context-aware logger, it takes precedence over the one set with WithLogger.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.contextualLogger = logger

		return nil
	}
}

// WithMetrics sets the collector for query/append durations, event counts, conflicts and database errors.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.metricsCollector = collector

		return nil
	}
}
