package library

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

const (
	OperationDurationMetric = "library_operation_duration_seconds"
	OperationFailuresMetric = "library_operation_failures_total"

	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelKind      = "kind"

	StatusSuccess = "success"
	StatusFailure = "failure"

	operationAddBook       = "add_book"
	operationRegisterUser  = "register_user"
	operationBorrowBook    = "borrow_book"
	operationReturnBook    = "return_book"
	operationGetBookByISBN = "get_book_by_isbn"
	operationNotifyUser    = "notify_user_with_book_reviews"

	logMsgOperationSucceeded        = "library operation succeeded"
	logMsgOperationFailed           = "library operation failed"
	logMsgReviewReleaseFailed       = "releasing the review service failed"
	logMsgNotificationAttemptFailed = "notification attempt failed"
	logMsgBestEffortNotifyFailed    = "review notification on book lookup failed"
	logMsgReviewsFetched            = "reviews fetched"

	logAttrOperation  = "operation"
	logAttrISBN       = "isbn"
	logAttrUserID     = "user_id"
	logAttrKind       = "kind"
	logAttrError      = "error"
	logAttrDurationMS = "duration_ms"
	logAttrReviews    = "review_count"
)

// observe logs and records the outcome of one workflow call. Validation failures are logged at debug,
// other domain failures at info and infrastructure failures at error level.
func (l *Library) observe(ctx context.Context, operation string, start time.Time, err error, args ...any) {
	duration := time.Since(start)
	status := StatusSuccess

	if err != nil {
		status = StatusFailure
	}

	if l.metricsCollector != nil {
		l.metricsCollector.RecordDuration(OperationDurationMetric, duration, map[string]string{
			LabelOperation: operation,
			LabelStatus:    status,
		})

		if err != nil {
			l.metricsCollector.IncrementCounter(OperationFailuresMetric, map[string]string{
				LabelOperation: operation,
				LabelKind:      core.KindOf(err).String(),
			})
		}
	}

	if l.logger == nil && l.contextualLogger == nil {
		return
	}

	allArgs := append([]any{logAttrOperation, operation, logAttrDurationMS, duration.Milliseconds()}, args...)

	if err == nil {
		l.log(ctx, levelInfo, logMsgOperationSucceeded, allArgs...)
		return
	}

	kind := core.KindOf(err)
	allArgs = append(allArgs, logAttrKind, kind.String(), logAttrError, err.Error())

	switch kind {
	case core.KindValidation:
		l.log(ctx, levelDebug, logMsgOperationFailed, allArgs...)
	case core.KindPersistence, core.KindUnknown:
		l.log(ctx, levelError, logMsgOperationFailed, append(allArgs, "cause", causeOf(err))...)
	default:
		l.log(ctx, levelInfo, logMsgOperationFailed, allArgs...)
	}
}

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

func (l *Library) warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, levelWarn, msg, args...)
}

// log prefers the contextual logger, the plain one is the fallback.
func (l *Library) log(ctx context.Context, level logLevel, msg string, args ...any) {
	if l.contextualLogger != nil {
		switch level {
		case levelDebug:
			l.contextualLogger.DebugContext(ctx, msg, args...)
		case levelInfo:
			l.contextualLogger.InfoContext(ctx, msg, args...)
		case levelWarn:
			l.contextualLogger.WarnContext(ctx, msg, args...)
		default:
			l.contextualLogger.ErrorContext(ctx, msg, args...)
		}

		return
	}

	if l.logger == nil {
		return
	}

	switch level {
	case levelDebug:
		l.logger.Debug(msg, args...)
	case levelInfo:
		l.logger.Info(msg, args...)
	case levelWarn:
		l.logger.Warn(msg, args...)
	default:
		l.logger.Error(msg, args...)
	}
}

// causeOf renders the full chain, since Error() of a wrapped core error only shows the sentinel's message.
func causeOf(err error) string {
	type multiUnwrapper interface{ Unwrap() []error }

	if wrapped, ok := err.(multiUnwrapper); ok {
		for _, e := range wrapped.Unwrap() {
			if !core.IsLibraryError(e) {
				return e.Error()
			}
		}
	}

	return err.Error()
}
