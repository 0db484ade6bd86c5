package postgresengine

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	_ "github.com/lib/pq" // database/sql driver "postgres" used by goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

var ErrMigrationFailed = errors.New("migrating the events table failed")

// Migrate creates or upgrades the default "events" table with the embedded goose migrations.
// Tables configured via WithTableName are not managed by Migrate.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return ErrMigrationFailed
	}

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialectPostgres); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// MigrateDSN opens a short-lived database/sql connection with lib/pq and runs Migrate on it.
func MigrateDSN(ctx context.Context, dsn string) error {
	db, openErr := sql.Open("postgres", dsn)
	if openErr != nil {
		return errors.Join(ErrMigrationFailed, openErr)
	}
	defer func() { _ = db.Close() }()

	return Migrate(ctx, db)
}
