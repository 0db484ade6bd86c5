package library_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/library/core"
	"github.com/AntonStoeckl/library-circulation-go/testutil/doubles"
)

func Test_Library_AddBook_Succeeds(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := core.NewBook(validISBN, validTitle, validAuthor)

	// act
	err := f.lib.AddBook(t.Context(), book)

	// assert
	require.NoError(t, err)

	addCalls := f.db.CallsOf("AddBook")
	require.Len(t, addCalls, 1)
	assert.Equal(t, []string{validISBN}, addCalls[0].Args)
}

func Test_Library_AddBook_ValidationFailures_DoNotTouchTheDatabase(t *testing.T) {
	borrowed := core.NewBook(validISBN, validTitle, validAuthor)
	borrowed.MarkBorrowed()

	testCases := []struct {
		name     string
		book     *core.Book
		expected *core.Error
	}{
		{"nil book", nil, core.ErrInvalidBook},
		{"checksum-invalid ISBN", core.NewBook(invalidISBN, validTitle, validAuthor), core.ErrInvalidISBN},
		{"empty ISBN", core.NewBook("", validTitle, validAuthor), core.ErrInvalidISBN},
		{"empty title", core.NewBook(validISBN, "", validAuthor), core.ErrInvalidTitle},
		{"invalid author", core.NewBook(validISBN, validTitle, "-Mark"), core.ErrInvalidAuthor},
		{"already borrowed", borrowed, core.ErrInvalidBorrowedState},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := newFixture(t)

			// act
			firstErr := f.lib.AddBook(t.Context(), tc.book)
			secondErr := f.lib.AddBook(t.Context(), tc.book)

			// assert
			assert.ErrorIs(t, firstErr, tc.expected)
			assert.Equal(t, tc.expected.Error(), firstErr.Error())
			assert.Equal(t, firstErr, secondErr)
			assert.Empty(t, f.db.Calls())
		})
	}
}

func Test_Library_AddBook_Fails_WhenTheBookAlreadyExists(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)

	// act
	err := f.lib.AddBook(t.Context(), core.NewBook(validISBN, validTitle, validAuthor))

	// assert
	assert.ErrorIs(t, err, core.ErrBookAlreadyExists)
	assert.Empty(t, f.db.CallsOf("AddBook"))
}

func Test_Library_AddBook_WrapsInfrastructureFailures(t *testing.T) {
	// arrange
	f := newFixture(t)
	dbErr := errors.New("connection refused")
	f.db.AddBookErr = dbErr

	// act
	err := f.lib.AddBook(t.Context(), core.NewBook(validISBN, validTitle, validAuthor))

	// assert
	assert.ErrorIs(t, err, core.ErrPersistenceFailed)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, "Persistence failed!", err.Error())
	assert.True(t, f.logger.HasRecord("error", "library operation failed"))
}

func Test_Library_AddBook_KeepsLibraryErrorsFromTheDatabase(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.db.AddBookErr = core.ErrBookAlreadyExists

	// act
	err := f.lib.AddBook(t.Context(), core.NewBook(validISBN, validTitle, validAuthor))

	// assert
	assert.ErrorIs(t, err, core.ErrBookAlreadyExists)
	assert.NotErrorIs(t, err, core.ErrPersistenceFailed)
}

func Test_Library_BorrowBook_Succeeds(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)

	// act
	err := f.lib.BorrowBook(t.Context(), validISBN, validUserID)

	// assert
	require.NoError(t, err)

	borrowCalls := f.db.CallsOf("BorrowBook")
	require.Len(t, borrowCalls, 1)
	assert.Equal(t, []string{validISBN, validUserID}, borrowCalls[0].Args)
	assert.True(t, f.db.IsBorrowed(validISBN))
}

func Test_Library_BorrowBook_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		isbn      string
		userID    string
		withBook  bool
		borrowed  bool
		withUser  bool
		expected  *core.Error
		noDBCalls bool
	}{
		{"invalid ISBN", invalidISBN, validUserID, true, false, true, core.ErrInvalidISBN, true},
		{"user ID too short", validISBN, "12345678910", true, false, true, core.ErrInvalidUserID, true},
		{"user ID with letters", validISBN, "12345678910a", true, false, true, core.ErrInvalidUserID, true},
		{"unknown book", validISBN, validUserID, false, false, true, core.ErrBookNotFound, false},
		{"unknown user", validISBN, validUserID, true, false, false, core.ErrUserNotFound, false},
		{"already borrowed", validISBN, validUserID, true, true, true, core.ErrBookAlreadyBorrowed, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := newFixture(t)

			if tc.withBook {
				f.givenBook(validISBN, tc.borrowed)
			}

			if tc.withUser {
				f.givenUser(validUserID)
			}

			// act
			err := f.lib.BorrowBook(t.Context(), tc.isbn, tc.userID)

			// assert
			assert.ErrorIs(t, err, tc.expected)
			assert.Equal(t, tc.expected.Error(), err.Error())
			assert.Empty(t, f.db.CallsOf("BorrowBook"))
			assert.Equal(t, tc.borrowed, f.db.IsBorrowed(validISBN))

			if tc.noDBCalls {
				assert.Empty(t, f.db.Calls())
			}
		})
	}
}

func Test_Library_BorrowBook_ChecksTheBookBeforeTheUser(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	err := f.lib.BorrowBook(t.Context(), validISBN, validUserID)

	// assert
	assert.ErrorIs(t, err, core.ErrBookNotFound)
	assert.Empty(t, f.db.CallsOf("GetUserByID"))
}

func Test_Library_ReturnBook_Succeeds(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, true)

	// act
	err := f.lib.ReturnBook(t.Context(), validISBN)

	// assert
	require.NoError(t, err)
	assert.Len(t, f.db.CallsOf("ReturnBook"), 1)
	assert.False(t, f.db.IsBorrowed(validISBN))
}

func Test_Library_ReturnBook_Fails_WhenTheBookWasNotBorrowed(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)

	// act
	err := f.lib.ReturnBook(t.Context(), validISBN)

	// assert
	assert.ErrorIs(t, err, core.ErrBookNotBorrowed)
	assert.Equal(t, "Book wasn't borrowed!", err.Error())
	assert.Empty(t, f.db.CallsOf("ReturnBook"))
	assert.False(t, f.db.IsBorrowed(validISBN))
}

func Test_Library_ReturnBook_Fails_ForInvalidOrUnknownBooks(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.lib.ReturnBook(t.Context(), invalidISBN), core.ErrInvalidISBN)
	assert.Empty(t, f.db.Calls())

	assert.ErrorIs(t, f.lib.ReturnBook(t.Context(), validISBN), core.ErrBookNotFound)
}

func Test_Library_BorrowAndReturn_FormATwoStateCycle(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, false)
	f.givenUser(validUserID)
	ctx := t.Context()

	// act + assert
	require.NoError(t, f.lib.BorrowBook(ctx, validISBN, validUserID))
	assert.ErrorIs(t, f.lib.BorrowBook(ctx, validISBN, validUserID), core.ErrBookAlreadyBorrowed)
	assert.True(t, f.db.IsBorrowed(validISBN))

	require.NoError(t, f.lib.ReturnBook(ctx, validISBN))
	assert.ErrorIs(t, f.lib.ReturnBook(ctx, validISBN), core.ErrBookNotBorrowed)
	assert.False(t, f.db.IsBorrowed(validISBN))

	require.NoError(t, f.lib.BorrowBook(ctx, validISBN, validUserID))
	assert.Len(t, f.db.CallsOf("BorrowBook"), 2)
	assert.Len(t, f.db.CallsOf("ReturnBook"), 1)
}

func Test_Library_GetBookByISBN_RoundTrip(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenUser(validUserID)
	require.NoError(t, f.lib.AddBook(t.Context(), core.NewBook(validISBN, validTitle, validAuthor)))

	// act
	book, err := f.lib.GetBookByISBN(t.Context(), validISBN, validUserID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, validISBN, book.ISBN())
	assert.Equal(t, validTitle, book.Title())
	assert.Equal(t, validAuthor, book.Author())
	assert.False(t, book.IsBorrowed())
	assert.Equal(t, []string{"Reviews for 'title':\ngreat read"}, f.notifier.Messages())
}

func Test_Library_GetBookByISBN_Fails_ForABorrowedBook_BeforeNotifying(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenBook(validISBN, true)
	f.givenUser(validUserID)

	// act
	book, err := f.lib.GetBookByISBN(t.Context(), validISBN, validUserID)

	// assert
	assert.Nil(t, book)
	assert.ErrorIs(t, err, core.ErrBookWasAlreadyBorrowed)
	assert.Equal(t, "Book was already borrowed!", err.Error())
	assert.Empty(t, f.reviews.Fetches())
	assert.Zero(t, f.notifier.Attempts())
}

func Test_Library_GetBookByISBN_ReturnsTheBook_WhenTheNotificationFails(t *testing.T) {
	testCases := []struct {
		name    string
		arrange func(f *fixture)
	}{
		{"no reviews", func(f *fixture) { f.reviews.Reviews = nil }},
		{"review service down", func(f *fixture) { f.reviews.Err = errors.New("503") }},
		{"send fails", func(f *fixture) { f.notifier.Err = errors.New("smtp down") }},
		{"unknown user", func(*fixture) {}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := newFixture(t)
			f.givenBook(validISBN, false)

			if tc.name != "unknown user" {
				f.givenUser(validUserID)
			}

			tc.arrange(f)

			// act
			book, err := f.lib.GetBookByISBN(t.Context(), validISBN, validUserID)

			// assert
			require.NoError(t, err)
			assert.Equal(t, validISBN, book.ISBN())
			assert.True(t, f.logger.HasRecord("warn", "review notification on book lookup failed"))
		})
	}
}

func Test_Library_GetBookByISBN_ValidatesBeforeAnyLookup(t *testing.T) {
	f := newFixture(t)

	_, err := f.lib.GetBookByISBN(t.Context(), invalidISBN, validUserID)
	assert.ErrorIs(t, err, core.ErrInvalidISBN)

	_, err = f.lib.GetBookByISBN(t.Context(), validISBN, "1")
	assert.ErrorIs(t, err, core.ErrInvalidUserID)

	assert.Empty(t, f.db.Calls())
}

func Test_Library_RecordsOperationMetrics(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	_ = f.lib.AddBook(t.Context(), core.NewBook(validISBN, validTitle, validAuthor))
	_ = f.lib.ReturnBook(t.Context(), validISBN)

	// assert
	durations := f.metrics.Records(library.OperationDurationMetric)
	require.Len(t, durations, 2)
	assert.Equal(t, map[string]string{library.LabelOperation: "add_book", library.LabelStatus: library.StatusSuccess}, durations[0].Labels)
	assert.Equal(t, map[string]string{library.LabelOperation: "return_book", library.LabelStatus: library.StatusFailure}, durations[1].Labels)

	assert.Equal(t, 1, f.metrics.CounterValue(library.OperationFailuresMetric, map[string]string{
		library.LabelOperation: "return_book",
		library.LabelKind:      "not_borrowed",
	}))
}

func Test_Library_LogsValidationFailuresAtDebugLevel(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	_ = f.lib.AddBook(t.Context(), core.NewBook(invalidISBN, validTitle, validAuthor))

	// assert
	assert.True(t, f.logger.HasRecord("debug", "library operation failed"))
	assert.False(t, f.logger.HasRecord("error", "library operation failed"))
}

var _ library.Database = (*doubles.DatabaseSpy)(nil)
