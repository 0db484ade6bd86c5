package library

import (
	"context"
	"strings"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
	"github.com/AntonStoeckl/library-circulation-go/library/shell"
)

// NotifyUserWithBookReviews sends the user a message with all reviews of the book.
//
// The review service is released right after the fetch, whatever its outcome, so a failing
// send never leaks review resources. Fails with core.ErrNoReviewsFound, core.ErrReviewServiceUnavailable,
// or core.ErrNotificationFailed, the latter two keep the cause in the error chain.
func (l *Library) NotifyUserWithBookReviews(ctx context.Context, isbn string, userID string) (err error) {
	defer func(start time.Time) {
		l.observe(ctx, operationNotifyUser, start, err, logAttrISBN, isbn, logAttrUserID, userID)
	}(time.Now())

	if err = core.ValidateISBN(isbn); err != nil {
		return err
	}

	if err = core.ValidateUserID(userID); err != nil {
		return err
	}

	book, lookupErr := l.db.GetBookByISBN(ctx, isbn)
	if lookupErr != nil {
		return persistenceFailure(lookupErr)
	}

	if book == nil {
		return core.ErrBookNotFound
	}

	return l.notifyWithReviews(ctx, book, userID)
}

// notifyWithReviews runs the steps after the book lookup: user lookup, fetch, release, send.
func (l *Library) notifyWithReviews(ctx context.Context, book *core.Book, userID string) error {
	user, lookupErr := l.db.GetUserByID(ctx, userID)
	if lookupErr != nil {
		return persistenceFailure(lookupErr)
	}

	if user == nil {
		return core.ErrUserNotFound
	}

	reviews, fetchErr := l.reviewService.GetReviewsForBook(ctx, book.ISBN())
	l.releaseReviewService(ctx, book.ISBN())

	if fetchErr != nil {
		return core.Wrap(core.ErrReviewServiceUnavailable, fetchErr)
	}

	l.log(ctx, levelDebug, logMsgReviewsFetched, logAttrISBN, book.ISBN(), logAttrReviews, len(reviews))

	if len(reviews) == 0 {
		return core.ErrNoReviewsFound
	}

	if sendErr := l.sendNotification(ctx, user, composeReviewsMessage(book.Title(), reviews)); sendErr != nil {
		return core.Wrap(core.ErrNotificationFailed, sendErr)
	}

	return nil
}

func (l *Library) releaseReviewService(ctx context.Context, isbn string) {
	if closeErr := l.reviewService.Close(); closeErr != nil {
		l.warn(ctx, logMsgReviewReleaseFailed, logAttrISBN, isbn, logAttrError, closeErr.Error())
	}
}

// sendNotification delivers the message, retrying failed deliveries if configured with WithNotificationRetry.
func (l *Library) sendNotification(ctx context.Context, user *core.User, message string) error {
	attempt := 0

	send := func(ctx context.Context) error {
		attempt++

		sendErr := user.SendNotification(ctx, message)
		if sendErr != nil && attempt < l.notificationMaxAttempts {
			l.warn(ctx, logMsgNotificationAttemptFailed, logAttrUserID, user.ID(), "attempt", attempt, logAttrError, sendErr.Error())
		}

		return sendErr
	}

	options := []shell.RetryOption{
		shell.WithMaxAttempts(l.notificationMaxAttempts),
		shell.WithBaseDelay(l.notificationRetryBackoff),
		shell.WithRetryIf(shell.RetryAnyError),
	}

	if l.metricsCollector != nil {
		options = append(options, shell.WithMetrics(l.metricsCollector, operationNotifyUser))
	}

	return shell.RetryWithExponentialBackoff(ctx, send, options...)
}

// composeReviewsMessage renders "Reviews for '<title>':" followed by one review per line.
func composeReviewsMessage(title string, reviews []string) string {
	var sb strings.Builder

	sb.WriteString("Reviews for '")
	sb.WriteString(title)
	sb.WriteString("':\n")
	sb.WriteString(strings.Join(reviews, "\n"))

	return sb.String()
}
