package library

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
	"github.com/AntonStoeckl/library-circulation-go/library/shell"
)

var (
	ErrNilDatabase      = errors.New("database must not be nil")
	ErrNilReviewService = errors.New("review service must not be nil")
)

// Database is the persistence service. Lookups return (nil, nil) when there is no record.
type Database interface {
	AddBook(ctx context.Context, isbn string, book *core.Book) error
	GetBookByISBN(ctx context.Context, isbn string) (*core.Book, error)
	RegisterUser(ctx context.Context, userID string, user *core.User) error
	GetUserByID(ctx context.Context, userID string) (*core.User, error)
	BorrowBook(ctx context.Context, isbn string, userID string) error
	ReturnBook(ctx context.Context, isbn string) error
}

// ReviewService fetches the reviews of a book. Close releases the resources acquired by a fetch,
// it is called once after every fetch and must be idempotent.
type ReviewService interface {
	GetReviewsForBook(ctx context.Context, isbn string) ([]string, error)
	Close() error
}

// Logger is satisfied by *slog.Logger and by logging.Adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is satisfied by *slog.Logger and by logging.Adapter, which adds the correlation ID
// carried by the context. It is preferred over Logger when both are set.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector is satisfied by promcollector.Collector.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// Library orchestrates the circulation workflows.
type Library struct {
	db                       Database
	reviewService            ReviewService
	logger                   Logger
	contextualLogger         ContextualLogger
	metricsCollector         MetricsCollector
	notificationMaxAttempts  int
	notificationRetryBackoff time.Duration
}

// Option defines a functional option for configuring Library.
type Option func(*Library) error

// WithLogger sets the logger for the Library.
func WithLogger(logger Logger) Option {
	return func(l *Library) error {
		l.logger = logger

		return nil
	}
}

// WithContextualLogger sets a logger that receives the context of each operation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(l *Library) error {
		l.contextualLogger = logger

		return nil
	}
}

// WithMetrics sets the collector for operation durations and failures.
func WithMetrics(collector MetricsCollector) Option {
	return func(l *Library) error {
		l.metricsCollector = collector

		return nil
	}
}

// WithNotificationRetry makes the send step of the review notification retry failed deliveries,
// with exponential backoff starting at baseDelay. maxAttempts includes the first attempt, the default is 1.
func WithNotificationRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(l *Library) error {
		if maxAttempts <= 0 {
			return shell.ErrInvalidMaxAttempts
		}

		if baseDelay < 0 {
			return shell.ErrNegativeBaseDelay
		}

		l.notificationMaxAttempts = maxAttempts
		l.notificationRetryBackoff = baseDelay

		return nil
	}
}

// NewLibrary creates a Library on top of its Database and ReviewService.
func NewLibrary(db Database, reviewService ReviewService, options ...Option) (*Library, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	if reviewService == nil {
		return nil, ErrNilReviewService
	}

	l := &Library{
		db:                      db,
		reviewService:           reviewService,
		notificationMaxAttempts: 1,
	}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// persistenceFailure keeps library errors a Database returns (e.g. a duplicate detected on write)
// and wraps everything else as core.ErrPersistenceFailed.
func persistenceFailure(err error) error {
	if core.IsLibraryError(err) {
		return err
	}

	return core.Wrap(core.ErrPersistenceFailed, err)
}
