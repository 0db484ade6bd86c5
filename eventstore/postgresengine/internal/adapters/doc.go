// Package adapters hides the differences between pgxpool.Pool, sql.DB and sqlx.DB
// behind the DBAdapter interface used by the PostgreSQL event store.
package adapters
