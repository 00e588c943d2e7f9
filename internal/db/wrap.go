package db

import (
	"context"
	"database/sql"
)

// WrapSQL adapts a *sql.DB to the DB interface.
func WrapSQL(conn *sql.DB) DB {
	return &sqlDB{db: conn}
}

type sqlDB struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ DB = (*sqlDB)(nil)

func (w *sqlDB) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (w *sqlDB) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return w.db.QueryRowContext(ctx, query, args...)
}

func (w *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	return w.db.ExecContext(ctx, query, args...)
}

func (w *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := w.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (w *sqlDB) PingContext(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *sqlDB) Close() error {
	return w.db.Close()
}

// Unwrap returns the underlying *sql.DB.
func (w *sqlDB) Unwrap() *sql.DB {
	return w.db
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *sqlTx) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}
