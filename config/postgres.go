package config

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

var ErrConnectingToPostgresFailed = errors.New("connecting to postgres failed")

// DSN renders the connection URL understood by pgx and lib/pq.
func (c PostgresConfig) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}

	return dsn.String()
}

// NewPGXPool opens and pings a pgx connection pool.
func NewPGXPool(ctx context.Context, c PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, errors.Join(ErrConnectingToPostgresFailed, err)
	}

	poolConfig.MaxConns = c.MaxConns
	poolConfig.MinConns = c.MinConns
	poolConfig.MaxConnLifetime = c.MaxConnLifetime
	poolConfig.MaxConnIdleTime = c.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = c.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Join(ErrConnectingToPostgresFailed, err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectingToPostgresFailed, pingErr)
	}

	return pool, nil
}

// NewSQLDB opens and pings a database/sql pool on lib/pq.
func NewSQLDB(ctx context.Context, c PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.DSN())
	if err != nil {
		return nil, errors.Join(ErrConnectingToPostgresFailed, err)
	}

	configureSQLPool(db, c)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingToPostgresFailed, pingErr)
	}

	return db, nil
}

// NewSQLX opens and pings a sqlx pool on lib/pq.
func NewSQLX(ctx context.Context, c PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", c.DSN())
	if err != nil {
		return nil, errors.Join(ErrConnectingToPostgresFailed, err)
	}

	configureSQLPool(db.DB, c)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingToPostgresFailed, pingErr)
	}

	return db, nil
}

func configureSQLPool(db *sql.DB, c PostgresConfig) {
	db.SetMaxOpenConns(int(c.MaxConns))
	db.SetMaxIdleConns(int(c.MinConns))
	db.SetConnMaxLifetime(c.MaxConnLifetime)
	db.SetConnMaxIdleTime(c.MaxConnIdleTime)
}
