package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rindex/internal/db"
)

const completionsTable = "completions"

var completionsColumns = []string{"package", "exports", "types", "functions", "updated_at"}

// SQLCache stores completions in a SQL database, one row per package.
type SQLCache struct {
	conn    db.DB
	dialect db.Dialect
}

// Verify interface compliance at compile time.
var _ Cache = (*SQLCache)(nil)

// OpenSQLCache opens the database described by cfg and ensures the schema.
func OpenSQLCache(ctx context.Context, cfg db.Config) (*SQLCache, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewSQLCache(ctx, conn, cfg.Dialect())
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLCache wraps an open connection and ensures the schema exists.
func NewSQLCache(ctx context.Context, conn db.DB, dialect db.Dialect) (*SQLCache, error) {
	schema := []string{
		dialect.CreateTableSQL(completionsTable, []db.ColumnDef{
			{Name: "package", Type: db.ColTypeText, PrimaryKey: true},
			{Name: "exports", Type: db.ColTypeText},
			{Name: "types", Type: db.ColTypeText},
			{Name: "functions", Type: db.ColTypeText},
			{Name: "updated_at", Type: db.ColTypeInteger},
		}),
		dialect.CreateIndexSQL(completionsTable, "idx_completions_updated", []string{"updated_at"}, false),
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating completions schema: %w", err)
		}
	}
	return &SQLCache{conn: conn, dialect: dialect}, nil
}

// Load returns every stored completion set.
func (c *SQLCache) Load(ctx context.Context) ([]Completions, error) {
	rows, err := c.conn.QueryContext(ctx,
		"SELECT package, exports, types, functions FROM "+completionsTable+" ORDER BY package")
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var result []Completions
	for rows.Next() {
		var pkg, exports, types, functions string
		if err := rows.Scan(&pkg, &exports, &types, &functions); err != nil {
			return nil, fmt.Errorf("scanning completions: %w", err)
		}
		comp := Completions{Package: pkg}
		if err := decodeColumns(&comp, exports, types, functions); err != nil {
			return nil, fmt.Errorf("decoding completions for %s: %w", pkg, err)
		}
		result = append(result, comp)
	}
	return result, rows.Err()
}

// Save upserts comp under pkg.
func (c *SQLCache) Save(ctx context.Context, pkg string, comp Completions) error {
	exports, err := json.Marshal(comp.Exports)
	if err != nil {
		return err
	}
	types, err := json.Marshal(comp.Types)
	if err != nil {
		return err
	}
	functions, err := json.Marshal(comp.Functions)
	if err != nil {
		return err
	}

	query := c.dialect.UpsertSQL(completionsTable, completionsColumns, []string{"package"}, nil)
	_, err = c.conn.ExecContext(ctx, query,
		pkg, string(exports), string(types), string(functions), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving completions for %s: %w", pkg, err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *SQLCache) Close() error {
	return c.conn.Close()
}

func decodeColumns(comp *Completions, exports, types, functions string) error {
	if err := json.Unmarshal([]byte(exports), &comp.Exports); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(types), &comp.Types); err != nil {
		return err
	}
	return json.Unmarshal([]byte(functions), &comp.Functions)
}
