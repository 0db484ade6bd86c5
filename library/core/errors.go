package core

import (
	"errors"
)

// ErrorKind discriminates the failures of the library workflows.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindAlreadyExists
	KindAlreadyBorrowed
	KindNotBorrowed
	KindNoReviews
	KindReviewServiceUnavailable
	KindNotificationFailed
	KindPersistence
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                  "unknown",
	KindValidation:               "validation",
	KindNotFound:                 "not_found",
	KindAlreadyExists:            "already_exists",
	KindAlreadyBorrowed:          "already_borrowed",
	KindNotBorrowed:              "not_borrowed",
	KindNoReviews:                "no_reviews",
	KindReviewServiceUnavailable: "review_service_unavailable",
	KindNotificationFailed:       "notification_failed",
	KindPersistence:              "persistence",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return kindNames[KindUnknown]
}

// Error is a library failure with a fixed, caller-visible message.
// The sentinels below are the only instances, compare them with errors.Is.
type Error struct {
	kind    ErrorKind
	message string
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Kind() ErrorKind {
	return e.kind
}

// Validation failures.
var (
	ErrInvalidBook                = newError(KindValidation, "Invalid book.")
	ErrInvalidUser                = newError(KindValidation, "Invalid user.")
	ErrInvalidISBN                = newError(KindValidation, "Invalid ISBN.")
	ErrInvalidTitle               = newError(KindValidation, "Invalid title.")
	ErrInvalidAuthor              = newError(KindValidation, "Invalid author.")
	ErrInvalidBorrowedState       = newError(KindValidation, "Book with invalid borrowed state.")
	ErrInvalidUserID              = newError(KindValidation, "Invalid user Id.")
	ErrInvalidUserName            = newError(KindValidation, "Invalid user name.")
	ErrInvalidNotificationService = newError(KindValidation, "Invalid notification service.")
)

// Domain-state failures.
var (
	ErrBookAlreadyExists        = newError(KindAlreadyExists, "Book already exists.")
	ErrUserAlreadyExists        = newError(KindAlreadyExists, "User already exists.")
	ErrBookNotFound             = newError(KindNotFound, "Book not found!")
	ErrUserNotFound             = newError(KindNotFound, "User not found!")
	ErrBookAlreadyBorrowed      = newError(KindAlreadyBorrowed, "Book is already borrowed!")
	ErrBookWasAlreadyBorrowed   = newError(KindAlreadyBorrowed, "Book was already borrowed!")
	ErrBookNotBorrowed          = newError(KindNotBorrowed, "Book wasn't borrowed!")
	ErrNoReviewsFound           = newError(KindNoReviews, "No reviews found!")
	ErrReviewServiceUnavailable = newError(KindReviewServiceUnavailable, "Review service unavailable!")
	ErrNotificationFailed       = newError(KindNotificationFailed, "Notification failed!")
	ErrPersistenceFailed        = newError(KindPersistence, "Persistence failed!")
)

// failure renders the sentinel's message but keeps the cause in the chain.
type failure struct {
	sentinel *Error
	cause    error
}

func (f *failure) Error() string {
	return f.sentinel.message
}

func (f *failure) Unwrap() []error {
	return []error{f.sentinel, f.cause}
}

// Wrap attaches a cause to a sentinel. Error() still renders only the sentinel's message,
// errors.Is matches both the sentinel and the cause.
func Wrap(sentinel *Error, cause error) error {
	if cause == nil {
		return sentinel
	}

	return &failure{sentinel: sentinel, cause: cause}
}

// KindOf returns the ErrorKind of the first library Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var libraryErr *Error
	if errors.As(err, &libraryErr) {
		return libraryErr.kind
	}

	return KindUnknown
}

// IsLibraryError reports whether err carries a library Error.
func IsLibraryError(err error) bool {
	return KindOf(err) != KindUnknown
}
