package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"rindex/internal/db"
)

// DatabaseConfig describes where resolved package completions are cached.
type DatabaseConfig struct {
	// Type is the database type (sqlite, postgres). Empty disables the cache.
	Type db.DatabaseType

	// Path is the SQLite database file path (for SQLite)
	Path string

	// DSN is the connection string (for PostgreSQL)
	DSN string
}

// DefaultCachePath returns the completions database path under the user
// cache directory, falling back to the working directory.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".rindex", "completions.db")
	}
	return filepath.Join(dir, "rindex", "completions.db")
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables.
// Supports the following variables:
//   - RINDEX_DB_TYPE: "sqlite", "postgres", or "none" to disable caching
//   - RINDEX_DB_DSN: Connection string for PostgreSQL
//   - RINDEX_DB_PATH: Database file path for SQLite
//
// If no environment variables are set, defaults to SQLite at DefaultCachePath.
func LoadDatabaseConfigFromEnv() DatabaseConfig {
	cfg := DatabaseConfig{Type: db.DatabaseSQLite}

	if dbType := os.Getenv("RINDEX_DB_TYPE"); dbType != "" {
		switch strings.ToLower(dbType) {
		case "postgres", "postgresql":
			cfg.Type = db.DatabasePostgres
		case "sqlite", "sqlite3":
			cfg.Type = db.DatabaseSQLite
		case "none", "off":
			cfg.Type = ""
		default:
			fmt.Fprintf(os.Stderr, "Warning: Unknown database type %q, using SQLite\n", dbType)
			cfg.Type = db.DatabaseSQLite
		}
	}

	if dsn := os.Getenv("RINDEX_DB_DSN"); dsn != "" {
		cfg.DSN = dsn

		// Auto-detect database type from DSN if not explicitly set
		if cfg.Type == db.DatabaseSQLite && (strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")) {
			cfg.Type = db.DatabasePostgres
		}
	}

	cfg.Path = os.Getenv("RINDEX_DB_PATH")
	return cfg
}

// Enabled reports whether completions should be cached at all.
func (c DatabaseConfig) Enabled() bool {
	return c.Type != ""
}

// ToDBConfig converts DatabaseConfig to db.Config for opening a database.
func (c DatabaseConfig) ToDBConfig() (db.Config, error) {
	switch c.Type {
	case db.DatabasePostgres:
		if c.DSN == "" {
			return db.Config{}, fmt.Errorf("postgres cache requires RINDEX_DB_DSN")
		}
		return db.PostgresConfig(c.DSN), nil

	case db.DatabaseSQLite:
		path := c.Path
		if path == "" {
			path = DefaultCachePath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return db.Config{}, fmt.Errorf("creating cache directory: %w", err)
		}
		return db.DefaultConfig(path), nil

	default:
		return db.Config{}, fmt.Errorf("completions cache is disabled")
	}
}

// String returns a human-readable description with any password masked.
func (c DatabaseConfig) String() string {
	switch c.Type {
	case db.DatabasePostgres:
		return fmt.Sprintf("PostgreSQL (%s)", maskDSN(c.DSN))
	case db.DatabaseSQLite:
		path := c.Path
		if path == "" {
			path = DefaultCachePath()
		}
		return fmt.Sprintf("SQLite (%s)", path)
	default:
		return "disabled"
	}
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	return u.Redacted()
}
