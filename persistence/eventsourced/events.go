package eventsourced

import (
	"time"
)

const (
	BookAddedToCatalogEventType = "BookAddedToCatalog"
	UserRegisteredEventType     = "UserRegistered"
	BookBorrowedEventType       = "BookBorrowed"
	BookReturnedEventType       = "BookReturned"
)

// DomainEvents is a slice of DomainEvent instances.
type DomainEvents = []DomainEvent

// DomainEvent is something that happened in the library.
type DomainEvent interface {
	IsEventType() string
	HasOccurredAt() time.Time
}

// BookAddedToCatalog is recorded when a book is added to the catalog.
type BookAddedToCatalog struct {
	EventType  string
	ISBN       string
	Title      string
	Author     string
	OccurredAt time.Time
}

func BuildBookAddedToCatalog(isbn, title, author string, occurredAt time.Time) BookAddedToCatalog {
	return BookAddedToCatalog{
		EventType:  BookAddedToCatalogEventType,
		ISBN:       isbn,
		Title:      title,
		Author:     author,
		OccurredAt: toOccurredAt(occurredAt),
	}
}

func (e BookAddedToCatalog) IsEventType() string {
	return BookAddedToCatalogEventType
}

func (e BookAddedToCatalog) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// UserRegistered is recorded when a user is registered.
type UserRegistered struct {
	EventType  string
	UserID     string
	Name       string
	OccurredAt time.Time
}

func BuildUserRegistered(userID, name string, occurredAt time.Time) UserRegistered {
	return UserRegistered{
		EventType:  UserRegisteredEventType,
		UserID:     userID,
		Name:       name,
		OccurredAt: toOccurredAt(occurredAt),
	}
}

func (e UserRegistered) IsEventType() string {
	return UserRegisteredEventType
}

func (e UserRegistered) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// BookBorrowed is recorded when a user borrows a book.
type BookBorrowed struct {
	EventType  string
	ISBN       string
	UserID     string
	OccurredAt time.Time
}

func BuildBookBorrowed(isbn, userID string, occurredAt time.Time) BookBorrowed {
	return BookBorrowed{
		EventType:  BookBorrowedEventType,
		ISBN:       isbn,
		UserID:     userID,
		OccurredAt: toOccurredAt(occurredAt),
	}
}

func (e BookBorrowed) IsEventType() string {
	return BookBorrowedEventType
}

func (e BookBorrowed) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// BookReturned is recorded when the borrower returns a book.
type BookReturned struct {
	EventType  string
	ISBN       string
	UserID     string
	OccurredAt time.Time
}

func BuildBookReturned(isbn, userID string, occurredAt time.Time) BookReturned {
	return BookReturned{
		EventType:  BookReturnedEventType,
		ISBN:       isbn,
		UserID:     userID,
		OccurredAt: toOccurredAt(occurredAt),
	}
}

func (e BookReturned) IsEventType() string {
	return BookReturnedEventType
}

func (e BookReturned) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// toOccurredAt normalizes to UTC with microsecond precision, which is what PostgreSQL stores.
func toOccurredAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
