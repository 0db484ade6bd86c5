package core

// Book is a catalog entry identified by its ISBN.
// The borrowed flag is a transient view of the state owned by the persistence service.
type Book struct {
	isbn     string
	title    string
	author   string
	borrowed bool
}

// NewBook creates a Book which is not borrowed. It does not validate anything, see ValidateBook.
func NewBook(isbn, title, author string) *Book {
	return &Book{
		isbn:   isbn,
		title:  title,
		author: author,
	}
}

func (b *Book) ISBN() string {
	return b.isbn
}

func (b *Book) Title() string {
	return b.title
}

func (b *Book) Author() string {
	return b.author
}

func (b *Book) IsBorrowed() bool {
	return b.borrowed
}

// MarkBorrowed flips the in-memory flag, call it after the persistence service recorded the borrow.
func (b *Book) MarkBorrowed() {
	b.borrowed = true
}

// MarkReturned flips the in-memory flag, call it after the persistence service recorded the return.
func (b *Book) MarkReturned() {
	b.borrowed = false
}
