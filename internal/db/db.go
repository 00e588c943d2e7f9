// Package db is a thin adapter over database/sql so storage code can run on
// SQLite (modernc, pure Go) or PostgreSQL (lib/pq) without changes.
package db

import (
	"context"
	"database/sql"
)

// DatabaseType identifies the database engine.
type DatabaseType string

const (
	// DatabaseSQLite is the SQLite database engine.
	DatabaseSQLite DatabaseType = "sqlite"

	// DatabasePostgres is the PostgreSQL database engine.
	DatabasePostgres DatabaseType = "postgres"
)

// Config describes how to open a database.
type Config struct {
	Type DatabaseType

	// Path is the SQLite file path, or ":memory:".
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	// EnableWAL turns on write-ahead logging for file-backed SQLite.
	EnableWAL bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

// DefaultConfig returns a SQLite configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Type:      DatabaseSQLite,
		Path:      path,
		EnableWAL: true,
	}
}

// PostgresConfig returns a PostgreSQL configuration for dsn.
func PostgresConfig(dsn string) Config {
	return Config{
		Type:            DatabasePostgres,
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 300,
	}
}

// Dialect returns the SQL dialect for the configured engine.
func (c Config) Dialect() Dialect {
	return GetDialect(c.Type)
}

// DB is the subset of *sql.DB used by storage code.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Tx is a database transaction.
type Tx interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	Commit() error
	Rollback() error
}

// Rows is an iterator over query results.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...any) error
	Err() error
}

// Result summarizes an executed statement.
type Result = sql.Result
