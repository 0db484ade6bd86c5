// Package library implements the circulation workflows of a library: adding books to the catalog,
// registering users, borrowing and returning books, fetching a book by ISBN, and notifying users
// with the reviews of a book.
//
// The Library validates every input with the rules from package core (fail fast, before any
// collaborator is called), then coordinates three collaborators which are injected at construction:
//
//   - a Database, the sole owner of durable state (books, users, borrow records)
//   - a ReviewService, which fetches reviews and must be released after every fetch
//   - one core.NotificationService per user, bound to the core.User
//
// All failures are core errors with fixed messages, use core.KindOf or errors.Is to discriminate them.
//
// The Library keeps no state of its own. Lookup-then-write sequences are not atomic across the two
// Database calls, closing that race window is the Database's job.
package library
