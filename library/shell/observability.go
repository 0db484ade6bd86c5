package shell

import "time"

// MetricsCollector receives retry metrics. It has the same shape as the eventstore's MetricsCollector.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

const (
	RetriesMetric           = "library_retries_total"
	RetryDelayMetric        = "library_retry_delay_seconds"
	MaxRetriesReachedMetric = "library_max_retries_reached_total"

	LabelOperation      = "operation"
	LabelAttemptNumber  = "attempt_number"
	LabelErrorType      = "error_type"
	LabelFinalErrorType = "final_error_type"
)
