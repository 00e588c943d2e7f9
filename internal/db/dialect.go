package db

import (
	"fmt"
	"slices"
	"strings"
)

// Dialect abstracts SQL syntax differences between database engines.
type Dialect interface {
	// Name returns the dialect name ("sqlite" or "postgres").
	Name() string

	// Placeholder returns the parameter placeholder for the given index (1-based).
	// SQLite uses "?", PostgreSQL uses "$1", "$2", etc.
	Placeholder(index int) string

	// Placeholders returns n placeholders joined by ", ".
	Placeholders(n int) string

	// UpsertSQL generates an insert-or-update statement. When updateColumns
	// is nil every non-conflict column is updated.
	UpsertSQL(table string, columns, conflictColumns, updateColumns []string) string

	// CreateTableSQL generates a CREATE TABLE IF NOT EXISTS statement.
	CreateTableSQL(table string, columns []ColumnDef) string

	// CreateIndexSQL generates a CREATE INDEX IF NOT EXISTS statement.
	CreateIndexSQL(table, indexName string, columns []string, unique bool) string

	// InitStatements returns statements to run once after connecting.
	InitStatements() []string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string
}

// ColumnDef defines a column for table creation.
type ColumnDef struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	PrimaryKey bool
	Default    string // SQL expression
}

// ColumnType represents abstract column types that map to database-specific types.
type ColumnType int

const (
	ColTypeInteger ColumnType = iota
	ColTypeText
	ColTypeTimestamp
)

// String returns the string representation of the column type.
func (ct ColumnType) String() string {
	switch ct {
	case ColTypeInteger:
		return "INTEGER"
	case ColTypeText:
		return "TEXT"
	case ColTypeTimestamp:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

// GetDialect returns the appropriate dialect for the given database type.
func GetDialect(dbType DatabaseType) Dialect {
	switch dbType {
	case DatabasePostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}

// upsertSQL builds the ON CONFLICT form shared by SQLite (3.24+) and
// PostgreSQL.
func upsertSQL(d Dialect, table string, columns, conflictColumns, updateColumns []string) string {
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), d.Placeholders(len(columns)))
	if len(conflictColumns) == 0 {
		return sql
	}
	sql += fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(conflictColumns, ", "))

	if updateColumns == nil {
		for _, col := range columns {
			if !slices.Contains(conflictColumns, col) {
				updateColumns = append(updateColumns, col)
			}
		}
	}
	if len(updateColumns) == 0 {
		return sql + " DO NOTHING"
	}

	updates := make([]string, 0, len(updateColumns))
	for _, col := range updateColumns {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return sql + " DO UPDATE SET " + strings.Join(updates, ", ")
}

// createTableSQL renders columns with typeOf mapping abstract types.
func createTableSQL(table string, columns []ColumnDef, typeOf func(ColumnType) string) string {
	var pk []string
	for _, col := range columns {
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}

	defs := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		parts := []string{col.Name, typeOf(col.Type)}
		if col.PrimaryKey && len(pk) == 1 {
			parts = append(parts, "PRIMARY KEY")
		}
		if !col.Nullable && !col.PrimaryKey {
			parts = append(parts, "NOT NULL")
		}
		if col.Default != "" {
			parts = append(parts, "DEFAULT", col.Default)
		}
		defs = append(defs, strings.Join(parts, " "))
	}
	if len(pk) > 1 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", table, strings.Join(defs, ",\n    "))
}

func createIndexSQL(table, indexName string, columns []string, unique bool) string {
	uniqueStr := ""
	if unique {
		uniqueStr = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		uniqueStr, indexName, table, strings.Join(columns, ", "))
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
