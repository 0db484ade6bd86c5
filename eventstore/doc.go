// Package eventstore provides the engine-independent building blocks for event sourcing
// with dynamic event streams.
//
// A "dynamic event stream" is not a physical stream. It is whatever set of events a Filter selects:
// event types, optionally narrowed by JSON payload predicates. Engines guarantee optimistic
// concurrency per Filter: Append only succeeds if the highest sequence number of the events
// matching the Filter is still the one observed by the preceding Query.
//
// Typical usage:
//
//	filter := eventstore.BuildEventFilter().
//		Matching().
//		AnyEventTypeOf("BookAddedToCatalog", "BookBorrowed", "BookReturned").
//		AndAnyPredicateOf(eventstore.P("ISBN", isbn)).
//		Finalize()
//
//	events, maxSeq, err := store.Query(ctx, filter)
//	if err != nil {
//		// handle error
//	}
//
//	// decide based on events ...
//
//	event, err := eventstore.BuildStorableEvent(eventType, occurredAt, payload, metadata)
//	err = store.Append(ctx, filter, maxSeq, event)
//
// Engines live in sub packages: postgresengine (PostgreSQL via pgx, database/sql or sqlx)
// and memoryengine (process local, for tests and single-process deployments).
package eventstore
