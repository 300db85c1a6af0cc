package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient creates a new SQLite client.
//
// The pool is limited to one connection: SQLite serializes writers anyway, and
// an in-memory database only exists on the connection that created it.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

// Dialect returns the SQLite dialect
func (c *SQLiteClient) Dialect() Dialect {
	return SQLite
}

// Exec runs a statement that returns no rows
func (c *SQLiteClient) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return execSQL(ctx, c.db, query, args...)
}

// Query runs a statement and buffers every returned row
func (c *SQLiteClient) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return querySQL(ctx, c.db, query, args...)
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}
