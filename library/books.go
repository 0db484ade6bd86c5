package library

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

// AddBook adds a not yet borrowed book to the catalog.
//
// Fails with a validation error (book, ISBN, title, author, borrowed state) before touching the Database,
// or with core.ErrBookAlreadyExists.
func (l *Library) AddBook(ctx context.Context, book *core.Book) (err error) {
	defer func(start time.Time) { l.observe(ctx, operationAddBook, start, err, logAttrISBN, isbnOf(book)) }(time.Now())

	if err = core.ValidateBook(book); err != nil {
		return err
	}

	existing, lookupErr := l.db.GetBookByISBN(ctx, book.ISBN())
	if lookupErr != nil {
		return persistenceFailure(lookupErr)
	}

	if existing != nil {
		return core.ErrBookAlreadyExists
	}

	if addErr := l.db.AddBook(ctx, book.ISBN(), book); addErr != nil {
		return persistenceFailure(addErr)
	}

	return nil
}

// BorrowBook lends the book to the user.
//
// The user ID format is checked before any Database call, and the book's existence before the user's.
func (l *Library) BorrowBook(ctx context.Context, isbn string, userID string) (err error) {
	defer func(start time.Time) {
		l.observe(ctx, operationBorrowBook, start, err, logAttrISBN, isbn, logAttrUserID, userID)
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

	user, lookupErr := l.db.GetUserByID(ctx, userID)
	if lookupErr != nil {
		return persistenceFailure(lookupErr)
	}

	if user == nil {
		return core.ErrUserNotFound
	}

	if book.IsBorrowed() {
		return core.ErrBookAlreadyBorrowed
	}

	if borrowErr := l.db.BorrowBook(ctx, isbn, userID); borrowErr != nil {
		return persistenceFailure(borrowErr)
	}

	book.MarkBorrowed()

	return nil
}

// ReturnBook takes a borrowed book back.
func (l *Library) ReturnBook(ctx context.Context, isbn string) (err error) {
	defer func(start time.Time) { l.observe(ctx, operationReturnBook, start, err, logAttrISBN, isbn) }(time.Now())

	if err = core.ValidateISBN(isbn); err != nil {
		return err
	}

	book, lookupErr := l.db.GetBookByISBN(ctx, isbn)
	if lookupErr != nil {
		return persistenceFailure(lookupErr)
	}

	if book == nil {
		return core.ErrBookNotFound
	}

	if !book.IsBorrowed() {
		return core.ErrBookNotBorrowed
	}

	if returnErr := l.db.ReturnBook(ctx, isbn); returnErr != nil {
		return persistenceFailure(returnErr)
	}

	book.MarkReturned()

	return nil
}

// GetBookByISBN returns a book that is available for the user.
//
// It also sends the user the book's reviews. That notification is best-effort: when it fails,
// the failure is logged and the book is returned anyway.
func (l *Library) GetBookByISBN(ctx context.Context, isbn string, userID string) (book *core.Book, err error) {
	defer func(start time.Time) {
		l.observe(ctx, operationGetBookByISBN, start, err, logAttrISBN, isbn, logAttrUserID, userID)
	}(time.Now())

	if err = core.ValidateISBN(isbn); err != nil {
		return nil, err
	}

	if err = core.ValidateUserID(userID); err != nil {
		return nil, err
	}

	book, lookupErr := l.db.GetBookByISBN(ctx, isbn)
	if lookupErr != nil {
		return nil, persistenceFailure(lookupErr)
	}

	if book == nil {
		return nil, core.ErrBookNotFound
	}

	if book.IsBorrowed() {
		return nil, core.ErrBookWasAlreadyBorrowed
	}

	if notifyErr := l.notifyWithReviews(ctx, book, userID); notifyErr != nil {
		l.warn(
			ctx,
			logMsgBestEffortNotifyFailed,
			logAttrISBN, isbn,
			logAttrUserID, userID,
			logAttrKind, core.KindOf(notifyErr).String(),
			logAttrError, notifyErr.Error(),
		)
	}

	return book, nil
}

func isbnOf(book *core.Book) string {
	if book == nil {
		return ""
	}

	return book.ISBN()
}
