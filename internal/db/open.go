package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Open opens a database connection using the configuration and runs the
// dialect's init statements.
func Open(cfg Config) (DB, error) {
	switch cfg.Type {
	case DatabasePostgres:
		return openPostgres(cfg)
	case DatabaseSQLite, "":
		return openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func openSQLite(cfg Config) (DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite requires a path in config")
	}

	raw, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	raw.SetMaxOpenConns(1)

	stmts := GetDialect(DatabaseSQLite).InitStatements()
	if cfg.EnableWAL && cfg.Path != ":memory:" {
		stmts = append(stmts, "PRAGMA journal_mode=WAL")
	}
	if err := initialize(raw, stmts); err != nil {
		raw.Close()
		return nil, err
	}
	return WrapSQL(raw), nil
}

// openPostgres opens a PostgreSQL database connection.
// Requires DSN in config.
func openPostgres(cfg Config) (DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres requires DSN in config")
	}

	raw, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		raw.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		raw.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		raw.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := raw.Ping(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := initialize(raw, GetDialect(DatabasePostgres).InitStatements()); err != nil {
		raw.Close()
		return nil, err
	}
	return WrapSQL(raw), nil
}

func initialize(raw *sql.DB, stmts []string) error {
	ctx := context.Background()
	for _, stmt := range stmts {
		if _, err := raw.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %q: %w", stmt, err)
		}
	}
	return nil
}
