package db

import "strings"

// SQLiteDialect implements the Dialect interface for SQLite.
type SQLiteDialect struct{}

// Verify interface compliance at compile time.
var _ Dialect = (*SQLiteDialect)(nil)

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (d *SQLiteDialect) UpsertSQL(table string, columns, conflictColumns, updateColumns []string) string {
	return upsertSQL(d, table, columns, conflictColumns, updateColumns)
}

func (d *SQLiteDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	return createTableSQL(table, columns, func(ct ColumnType) string {
		switch ct {
		case ColTypeInteger, ColTypeTimestamp:
			return "INTEGER" // timestamps are unix seconds
		default:
			return "TEXT"
		}
	})
}

func (d *SQLiteDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	return createIndexSQL(table, indexName, columns, unique)
}

func (d *SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return quoteIdentifier(name)
}
