package eventsourced

import (
	"github.com/AntonStoeckl/library-circulation-go/eventstore"
	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

// bookState is projected from the events of one ISBN.
type bookState struct {
	exists   bool
	title    string
	author   string
	borrowed bool
	borrower string
}

// userState is projected from the events of one user ID.
type userState struct {
	exists bool
	name   string
}

func projectBook(history DomainEvents, isbn string) bookState {
	var s bookState

	for _, event := range history {
		switch e := event.(type) {
		case BookAddedToCatalog:
			if e.ISBN == isbn {
				s.exists = true
				s.title = e.Title
				s.author = e.Author
			}

		case BookBorrowed:
			if e.ISBN == isbn {
				s.borrowed = true
				s.borrower = e.UserID
			}

		case BookReturned:
			if e.ISBN == isbn {
				s.borrowed = false
				s.borrower = ""
			}
		}
	}

	return s
}

func projectUser(history DomainEvents, userID string) userState {
	var s userState

	for _, event := range history {
		if e, ok := event.(UserRegistered); ok && e.UserID == userID {
			s.exists = true
			s.name = e.Name
		}
	}

	return s
}

// decideAddBook:
//
//	ERROR: core.ErrBookAlreadyExists if the ISBN is already in the catalog
func decideAddBook(s bookState, command BookAddedToCatalog) (DomainEvent, error) {
	if s.exists {
		return nil, core.ErrBookAlreadyExists
	}

	return command, nil
}

// decideRegisterUser:
//
//	ERROR: core.ErrUserAlreadyExists if the user ID is already registered
func decideRegisterUser(s userState, command UserRegistered) (DomainEvent, error) {
	if s.exists {
		return nil, core.ErrUserAlreadyExists
	}

	return command, nil
}

// decideBorrowBook:
//
//	ERROR: core.ErrBookNotFound if the ISBN is not in the catalog
//	ERROR: core.ErrBookAlreadyBorrowed if the book is currently borrowed by anyone
func decideBorrowBook(s bookState, command BookBorrowed) (DomainEvent, error) {
	if !s.exists {
		return nil, core.ErrBookNotFound
	}

	if s.borrowed {
		return nil, core.ErrBookAlreadyBorrowed
	}

	return command, nil
}

// decideReturnBook fills in the borrower, since returning only knows the ISBN.
//
//	ERROR: core.ErrBookNotFound if the ISBN is not in the catalog
//	ERROR: core.ErrBookNotBorrowed if the book is not borrowed
func decideReturnBook(s bookState, command BookReturned) (DomainEvent, error) {
	if !s.exists {
		return nil, core.ErrBookNotFound
	}

	if !s.borrowed {
		return nil, core.ErrBookNotBorrowed
	}

	command.UserID = s.borrower

	return command, nil
}

// BuildBookEventFilter selects all events of one book.
func BuildBookEventFilter(isbn string) eventstore.Filter {
	return eventstore.BuildEventFilter().
		Matching().
		AnyEventTypeOf(
			BookAddedToCatalogEventType,
			BookBorrowedEventType,
			BookReturnedEventType,
		).
		AndAnyPredicateOf(eventstore.P("ISBN", isbn)).
		Finalize()
}

// BuildUserEventFilter selects the registration of one user.
func BuildUserEventFilter(userID string) eventstore.Filter {
	return eventstore.BuildEventFilter().
		Matching().
		AnyEventTypeOf(UserRegisteredEventType).
		AndAnyPredicateOf(eventstore.P("UserID", userID)).
		Finalize()
}
