package doubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

// DatabaseCall is one captured call of a DatabaseSpy.
type DatabaseCall struct {
	Method string
	Args   []string
}

// DatabaseSpy is an in-memory Database that records every call.
// Set the *Err fields to make the corresponding method fail.
type DatabaseSpy struct {
	mu    sync.Mutex
	books map[string]*core.Book
	users map[string]*core.User
	calls []DatabaseCall

	GetBookErr  error
	GetUserErr  error
	AddBookErr  error
	RegisterErr error
	BorrowErr   error
	ReturnErr   error
}

func NewDatabaseSpy() *DatabaseSpy {
	return &DatabaseSpy{
		books: make(map[string]*core.Book),
		users: make(map[string]*core.User),
	}
}

// GivenBook stores a book without recording a call.
func (d *DatabaseSpy) GivenBook(book *core.Book) *DatabaseSpy {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.books[book.ISBN()] = book

	return d
}

// GivenUser stores a user without recording a call.
func (d *DatabaseSpy) GivenUser(user *core.User) *DatabaseSpy {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[user.ID()] = user

	return d
}

func (d *DatabaseSpy) AddBook(_ context.Context, isbn string, book *core.Book) error {
	d.record("AddBook", isbn)

	if d.AddBookErr != nil {
		return d.AddBookErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.books[isbn] = core.NewBook(book.ISBN(), book.Title(), book.Author())

	return nil
}

// GetBookByISBN returns a copy, like a real persistence service would.
func (d *DatabaseSpy) GetBookByISBN(_ context.Context, isbn string) (*core.Book, error) {
	d.record("GetBookByISBN", isbn)

	if d.GetBookErr != nil {
		return nil, d.GetBookErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored, ok := d.books[isbn]
	if !ok {
		return nil, nil
	}

	book := core.NewBook(stored.ISBN(), stored.Title(), stored.Author())
	if stored.IsBorrowed() {
		book.MarkBorrowed()
	}

	return book, nil
}

func (d *DatabaseSpy) RegisterUser(_ context.Context, userID string, user *core.User) error {
	d.record("RegisterUser", userID)

	if d.RegisterErr != nil {
		return d.RegisterErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[userID] = user

	return nil
}

func (d *DatabaseSpy) GetUserByID(_ context.Context, userID string) (*core.User, error) {
	d.record("GetUserByID", userID)

	if d.GetUserErr != nil {
		return nil, d.GetUserErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.users[userID], nil
}

func (d *DatabaseSpy) BorrowBook(_ context.Context, isbn string, userID string) error {
	d.record("BorrowBook", isbn, userID)

	if d.BorrowErr != nil {
		return d.BorrowErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if book, ok := d.books[isbn]; ok {
		book.MarkBorrowed()
	}

	return nil
}

func (d *DatabaseSpy) ReturnBook(_ context.Context, isbn string) error {
	d.record("ReturnBook", isbn)

	if d.ReturnErr != nil {
		return d.ReturnErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if book, ok := d.books[isbn]; ok {
		book.MarkReturned()
	}

	return nil
}

func (d *DatabaseSpy) record(method string, args ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, DatabaseCall{Method: method, Args: args})
}

// Calls returns all captured calls.
func (d *DatabaseSpy) Calls() []DatabaseCall {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]DatabaseCall(nil), d.calls...)
}

// CallsOf returns the captured calls of one method.
func (d *DatabaseSpy) CallsOf(method string) []DatabaseCall {
	var found []DatabaseCall

	for _, c := range d.Calls() {
		if c.Method == method {
			found = append(found, c)
		}
	}

	return found
}

// IsBorrowed reports the stored borrowed flag.
func (d *DatabaseSpy) IsBorrowed(isbn string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	book, ok := d.books[isbn]

	return ok && book.IsBorrowed()
}
