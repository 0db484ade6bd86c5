package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates a SQLAdapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (s *SQLAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return stdRows{rows: rows}, nil
}

func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	return s.db.ExecContext(ctx, query)
}

// stdRows adapts *sql.Rows, which is shared by database/sql and sqlx.
type stdRows struct {
	rows *sql.Rows
}

func (s stdRows) Next() bool {
	return s.rows.Next()
}

func (s stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s stdRows) Err() error {
	return s.rows.Err()
}

func (s stdRows) Close() error {
	return s.rows.Close()
}
