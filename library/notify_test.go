package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/library/core"
	"github.com/AntonStoeckl/library-circulation-go/library/shell"
)

func Test_Library_NotifyUserWithBookReviews_Succeeds(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.reviews.Reviews = []string{"first", "second"}

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{validISBN}, f.reviews.Fetches())
	assert.Equal(t, 1, f.reviews.CloseCalls())
	assert.Equal(t, []string{"Reviews for 'title':\nfirst\nsecond"}, f.notifier.Messages())
}

func Test_Library_NotifyUserWithBookReviews_WorksForBorrowedBooks(t *testing.T) {
	f := newFixture(t)
	f.givenBook(validISBN, true)
	f.givenUser(validUserID)

	require.NoError(t, f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID))
	assert.Len(t, f.notifier.Messages(), 1)
}

func Test_Library_NotifyUserWithBookReviews_Fails_WhenThereAreNoReviews(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.reviews.Reviews = []string{}

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrNoReviewsFound)
	assert.Equal(t, "No reviews found!", err.Error())
	assert.Equal(t, 1, f.reviews.CloseCalls())
	assert.Zero(t, f.notifier.Attempts())
}

func Test_Library_NotifyUserWithBookReviews_Fails_WhenTheReviewServiceIsUnavailable(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	serviceErr := errors.New("upstream returned 503")
	f.reviews.Err = serviceErr

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrReviewServiceUnavailable)
	assert.ErrorIs(t, err, serviceErr)
	assert.Equal(t, "Review service unavailable!", err.Error())
	assert.Zero(t, f.notifier.Attempts())
}

func Test_Library_NotifyUserWithBookReviews_ReleasesReviews_WhenTheSendFails(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	sendErr := errors.New("mailbox full")
	f.notifier.Err = sendErr

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrNotificationFailed)
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, "Notification failed!", err.Error())
	assert.Equal(t, 1, f.reviews.CloseCalls())
	assert.Equal(t, 1, f.notifier.Attempts())
}

func Test_Library_NotifyUserWithBookReviews_LogsCloseFailures(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.reviews.CloseErr = errors.New("already closed")

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	require.NoError(t, err)
	assert.True(t, f.logger.HasRecord("warn", "releasing the review service failed"))
}

func Test_Library_NotifyUserWithBookReviews_LookupFailures(t *testing.T) {
	t.Run("unknown book", func(t *testing.T) {
		f := newFixture(t)
		f.givenUser(validUserID)

		err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

		assert.ErrorIs(t, err, core.ErrBookNotFound)
		assert.Empty(t, f.db.CallsOf("GetUserByID"))
		assert.Empty(t, f.reviews.Fetches())
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		f.givenBook(validISBN, false)

		err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

		assert.ErrorIs(t, err, core.ErrUserNotFound)
		assert.Empty(t, f.reviews.Fetches())
		assert.Zero(t, f.reviews.CloseCalls())
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		assert.ErrorIs(t, f.lib.NotifyUserWithBookReviews(t.Context(), invalidISBN, validUserID), core.ErrInvalidISBN)
		assert.ErrorIs(t, f.lib.NotifyUserWithBookReviews(t.Context(), otherISBN, "abc"), core.ErrInvalidUserID)
		assert.Empty(t, f.db.Calls())
	})
}

func Test_Library_NotifyUserWithBookReviews_RetriesTheSend_WhenConfigured(t *testing.T) {
	// arrange
	f := newFixture(t, library.WithNotificationRetry(3, 0))
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.notifier.Err = errors.New("flaky")
	f.notifier.FailTimes = 2

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, f.notifier.Attempts())
	assert.Len(t, f.notifier.Messages(), 1)
	assert.Equal(t, 1, f.reviews.CloseCalls())
	assert.True(t, f.logger.HasRecord("warn", "notification attempt failed"))
}

func Test_Library_NotifyUserWithBookReviews_GivesUp_AfterTheLastAttempt(t *testing.T) {
	// arrange
	f := newFixture(t, library.WithNotificationRetry(2, 0))
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.notifier.Err = errors.New("down")

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrNotificationFailed)
	assert.Equal(t, 2, f.notifier.Attempts())
	assert.Equal(t, 1, f.metrics.CounterValue(shell.MaxRetriesReachedMetric, map[string]string{shell.LabelOperation: "notify_user_with_book_reviews"}))
}

func Test_Library_NotifyUserWithBookReviews_WithoutRetry_DoesNotReportExhaustedRetries(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.notifier.Err = errors.New("down")

	// act
	err := f.lib.NotifyUserWithBookReviews(t.Context(), validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrNotificationFailed)
	assert.Equal(t, 1, f.notifier.Attempts())
	assert.Empty(t, f.metrics.Records(shell.MaxRetriesReachedMetric))
	assert.Empty(t, f.metrics.Records(shell.RetriesMetric))
	assert.Equal(t, 1, f.metrics.CounterValue(library.OperationFailuresMetric, map[string]string{library.LabelKind: "notification_failed"}))
}

func Test_Library_NotifyUserWithBookReviews_StopsRetrying_WhenTheContextIsCancelled(t *testing.T) {
	// arrange
	f := newFixture(t, library.WithNotificationRetry(5, time.Hour))
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	f.notifier.Err = errors.New("down")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// act
	err := f.lib.NotifyUserWithBookReviews(ctx, validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrNotificationFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.notifier.Attempts())
}
