package shell

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	// beyond this the doubling would overflow time.Duration
	maxBackoffExponent = 30
)

var (
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")
	ErrEmptyOperationName  = errors.New("operation name must not be empty")
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
	ErrNilRetryPredicate   = errors.New("retry predicate must not be nil")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	isRetryable      func(error) bool
	metricsCollector MetricsCollector
	operation        string
}

// RetryWithExponentialBackoff runs fn until it succeeds, fails with a non-retryable error,
// the context is done, or maxAttempts is reached. It returns the last error.
//
// Default schedule: 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms (plus up to 30% jitter).
// By default only eventstore.ErrConcurrencyConflict is retried, see WithRetryIf.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		isRetryable:  IsConcurrencyConflict,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := exponentialDelay(config.baseDelay, attempt)
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // no crypto here
			backoffDelay := delay + time.Duration(jitter)

			config.recordRetryDelay(attempt, backoffDelay)

			timer := time.NewTimer(backoffDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !config.isRetryable(lastErr) {
			return lastErr
		}

		if attempt < config.maxAttempts-1 {
			config.recordRetryAttempt(attempt+1, lastErr)
		}
	}

	if config.maxAttempts > 1 {
		config.recordMaxRetriesReached(lastErr)
	}

	return lastErr
}

// exponentialDelay doubles baseDelay per retry, the exponent is capped at maxBackoffExponent.
func exponentialDelay(baseDelay time.Duration, retry int) time.Duration {
	return baseDelay * time.Duration(1<<min(retry-1, maxBackoffExponent))
}

// IsConcurrencyConflict is the default retry predicate.
//
// Timeouts are deliberately not retried, retrying them under overload only makes it worse.
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, eventstore.ErrConcurrencyConflict)
}

// RetryAnyError retries every error except context cancellation and deadline expiry.
func RetryAnyError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}

func (c *retryConfig) recordRetryDelay(attempt int, delay time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	c.metricsCollector.RecordDuration(RetryDelayMetric, delay, map[string]string{
		LabelOperation:     c.operation,
		LabelAttemptNumber: strconv.Itoa(attempt),
	})
}

func (c *retryConfig) recordRetryAttempt(attempt int, err error) {
	if c.metricsCollector == nil {
		return
	}

	c.metricsCollector.IncrementCounter(RetriesMetric, map[string]string{
		LabelOperation:     c.operation,
		LabelAttemptNumber: strconv.Itoa(attempt),
		LabelErrorType:     errorType(err),
	})
}

func (c *retryConfig) recordMaxRetriesReached(err error) {
	if c.metricsCollector == nil {
		return
	}

	c.metricsCollector.IncrementCounter(MaxRetriesReachedMetric, map[string]string{
		LabelOperation:      c.operation,
		LabelFinalErrorType: errorType(err),
	})
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts, including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff: baseDelay, baseDelay*2, baseDelay*4, ...
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter as a fraction of the backoff delay, from 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryIf replaces the predicate that decides which errors are retried.
func WithRetryIf(isRetryable func(error) bool) RetryOption {
	return func(config *retryConfig) error {
		if isRetryable == nil {
			return ErrNilRetryPredicate
		}

		config.isRetryable = isRetryable

		return nil
	}
}

// WithMetrics sets the metrics collector, labeled with the name of the retried operation.
func WithMetrics(collector MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperationName
		}

		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}
