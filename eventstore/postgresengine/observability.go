package postgresengine

import (
	"context"
	"math"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
)

const engineName = "postgres"

func (es EventStore) logDebug(ctx context.Context, msg string, args ...any) {
	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.DebugContext(ctx, msg, args...)
	case es.logger != nil:
		es.logger.Debug(msg, args...)
	}
}

func (es EventStore) logInfo(ctx context.Context, msg string, args ...any) {
	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.InfoContext(ctx, msg, args...)
	case es.logger != nil:
		es.logger.Info(msg, args...)
	}
}

func (es EventStore) logWarn(ctx context.Context, msg string, args ...any) {
	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.WarnContext(ctx, msg, args...)
	case es.logger != nil:
		es.logger.Warn(msg, args...)
	}
}

func (es EventStore) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	case es.logger != nil:
		es.logger.Error(msg, allArgs...)
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (es EventStore) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	es.logDebug(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

func (es EventStore) recordDuration(metric string, operation string, status string, duration time.Duration) {
	if es.metricsCollector == nil {
		return
	}

	es.metricsCollector.RecordDuration(metric, duration, map[string]string{
		eventstore.LabelEngine:    engineName,
		eventstore.LabelOperation: operation,
		eventstore.LabelStatus:    status,
	})
}

func (es EventStore) recordEventCount(metric string, count int) {
	if es.metricsCollector == nil {
		return
	}

	es.metricsCollector.RecordValue(metric, float64(count), map[string]string{eventstore.LabelEngine: engineName})
}

func (es EventStore) incrementCounter(metric string, operation string) {
	if es.metricsCollector == nil {
		return
	}

	es.metricsCollector.IncrementCounter(metric, map[string]string{
		eventstore.LabelEngine:    engineName,
		eventstore.LabelOperation: operation,
	})
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
