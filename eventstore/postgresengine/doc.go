// Package postgresengine is the PostgreSQL engine of the eventstore.
//
// All events live in one table. Query selects the events matching an eventstore.Filter,
// Append inserts events with a single INSERT ... SELECT whose CTE re-evaluates the max sequence number
// of the same Filter, so the insert only happens when nobody else appended to that "dynamic event stream" in between.
//
// Connections can be a pgxpool.Pool (optionally with a read replica), a sql.DB or a sqlx.DB:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := postgresengine.NewEventStoreFromPGXPool(
//		pool,
//		postgresengine.WithTableName("events"),
//		postgresengine.WithLogger(logger),
//	)
//
//	events, maxSeq, _ := store.Query(ctx, filter)
//	err := store.Append(ctx, filter, maxSeq, newEvent)
//
// Migrate applies the embedded goose migrations for the default table.
package postgresengine
