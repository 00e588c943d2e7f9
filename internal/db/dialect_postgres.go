package db

import (
	"fmt"
	"strings"
)

// PostgresDialect implements the Dialect interface for PostgreSQL.
type PostgresDialect struct{}

// Verify interface compliance at compile time.
var _ Dialect = (*PostgresDialect)(nil)

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return strings.Join(placeholders, ", ")
}

func (d *PostgresDialect) UpsertSQL(table string, columns, conflictColumns, updateColumns []string) string {
	return upsertSQL(d, table, columns, conflictColumns, updateColumns)
}

func (d *PostgresDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	return createTableSQL(table, columns, func(ct ColumnType) string {
		switch ct {
		case ColTypeInteger:
			return "BIGINT"
		case ColTypeTimestamp:
			return "TIMESTAMPTZ"
		default:
			return "TEXT"
		}
	})
}

func (d *PostgresDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	return createIndexSQL(table, indexName, columns, unique)
}

// InitStatements is empty; PostgreSQL settings are per connection string.
func (d *PostgresDialect) InitStatements() []string {
	return nil
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return quoteIdentifier(name)
}
