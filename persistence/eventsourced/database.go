package eventsourced

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/eventstore"
	"github.com/AntonStoeckl/library-circulation-go/library/core"
	"github.com/AntonStoeckl/library-circulation-go/library/shell"
)

var (
	ErrNilEventStore      = errors.New("event store must not be nil")
	ErrNilNotifierFactory = errors.New("notifier factory must not be nil")
)

// EventStore is implemented by postgresengine.EventStore and memoryengine.EventStore.
type EventStore interface {
	Query(ctx context.Context, filter eventstore.Filter) (
		eventstore.StorableEvents,
		eventstore.MaxSequenceNumberUint,
		error,
	)
	Append(
		ctx context.Context,
		filter eventstore.Filter,
		expectedMaxSequenceNumber eventstore.MaxSequenceNumberUint,
		storableEvent eventstore.StorableEvent,
		additionalEvents ...eventstore.StorableEvent,
	) error
}

// NotifierFactory returns the notification service of a user, users are rehydrated with it.
type NotifierFactory func(userID string) core.NotificationService

// Database is the event-sourced persistence service of the library.
type Database struct {
	eventStore      EventStore
	notifierFactory NotifierFactory
	retryOptions    []shell.RetryOption
	clock           func() time.Time
}

// Option configures a Database.
type Option func(*Database)

// WithRetryOptions sets a custom retry configuration for concurrency conflicts.
func WithRetryOptions(options ...shell.RetryOption) Option {
	return func(db *Database) {
		db.retryOptions = options
	}
}

// WithClock replaces time.Now as the source of OccurredAt.
func WithClock(clock func() time.Time) Option {
	return func(db *Database) {
		db.clock = clock
	}
}

func NewDatabase(eventStore EventStore, notifierFactory NotifierFactory, options ...Option) (*Database, error) {
	if eventStore == nil {
		return nil, ErrNilEventStore
	}

	if notifierFactory == nil {
		return nil, ErrNilNotifierFactory
	}

	db := &Database{
		eventStore:      eventStore,
		notifierFactory: notifierFactory,
		clock:           time.Now,
	}

	for _, option := range options {
		option(db)
	}

	return db, nil
}

func (db *Database) AddBook(ctx context.Context, isbn string, book *core.Book) error {
	filter := BuildBookEventFilter(isbn)
	command := BuildBookAddedToCatalog(isbn, book.Title(), book.Author(), db.clock())

	return db.handle(ctx, filter, func(history DomainEvents) (DomainEvent, error) {
		return decideAddBook(projectBook(history, isbn), command)
	})
}

// GetBookByISBN returns (nil, nil) if the ISBN was never added.
func (db *Database) GetBookByISBN(ctx context.Context, isbn string) (*core.Book, error) {
	history, _, err := db.query(ctx, BuildBookEventFilter(isbn))
	if err != nil {
		return nil, err
	}

	s := projectBook(history, isbn)
	if !s.exists {
		return nil, nil //nolint:nilnil // absent is not an error
	}

	book := core.NewBook(isbn, s.title, s.author)
	if s.borrowed {
		book.MarkBorrowed()
	}

	return book, nil
}

// RegisterUser stores ID and name, the notification service comes from the NotifierFactory on lookup.
func (db *Database) RegisterUser(ctx context.Context, userID string, user *core.User) error {
	filter := BuildUserEventFilter(userID)
	command := BuildUserRegistered(userID, user.Name(), db.clock())

	return db.handle(ctx, filter, func(history DomainEvents) (DomainEvent, error) {
		return decideRegisterUser(projectUser(history, userID), command)
	})
}

// GetUserByID returns (nil, nil) if the user was never registered.
func (db *Database) GetUserByID(ctx context.Context, userID string) (*core.User, error) {
	history, _, err := db.query(ctx, BuildUserEventFilter(userID))
	if err != nil {
		return nil, err
	}

	s := projectUser(history, userID)
	if !s.exists {
		return nil, nil //nolint:nilnil // absent is not an error
	}

	return core.NewUser(userID, s.name, db.notifierFactory(userID)), nil
}

func (db *Database) BorrowBook(ctx context.Context, isbn string, userID string) error {
	filter := BuildBookEventFilter(isbn)
	command := BuildBookBorrowed(isbn, userID, db.clock())

	return db.handle(ctx, filter, func(history DomainEvents) (DomainEvent, error) {
		return decideBorrowBook(projectBook(history, isbn), command)
	})
}

func (db *Database) ReturnBook(ctx context.Context, isbn string) error {
	filter := BuildBookEventFilter(isbn)
	command := BuildBookReturned(isbn, "", db.clock())

	return db.handle(ctx, filter, func(history DomainEvents) (DomainEvent, error) {
		return decideReturnBook(projectBook(history, isbn), command)
	})
}

func (db *Database) query(ctx context.Context, filter eventstore.Filter) (DomainEvents, eventstore.MaxSequenceNumberUint, error) {
	storableEvents, maxSequenceNumber, err := db.eventStore.Query(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	history, err := DomainEventsFrom(storableEvents)
	if err != nil {
		return nil, 0, err
	}

	return history, maxSequenceNumber, nil
}

// handle runs Query -> Unmarshal -> Decide -> Append, retrying the whole cycle on concurrency conflicts.
func (db *Database) handle(
	ctx context.Context,
	filter eventstore.Filter,
	decide func(history DomainEvents) (DomainEvent, error),
) error {
	return shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		history, maxSequenceNumber, err := db.query(retryCtx, filter)
		if err != nil {
			return err
		}

		event, err := decide(history)
		if err != nil {
			return err
		}

		uid := uuid.New()

		storableEvent, err := StorableEventFrom(event, BuildEventMetadata(uid, uid, uid))
		if err != nil {
			return err
		}

		return db.eventStore.Append(retryCtx, filter, maxSequenceNumber, storableEvent)
	}, db.retryOptions...)
}
