// Package eventsourced implements the library's persistence service on top of an event store.
//
// Every write follows the same cycle: query the events of one book or one user, project them into
// the current state, decide which event to append (or which domain error to return), and append it
// with the expected max sequence number of the queried stream. Concurrency conflicts are retried
// with exponential backoff, so two concurrent borrows of the same book can never both succeed.
//
// There are no tables for books or users, their state is always derived from the event history.
package eventsourced
