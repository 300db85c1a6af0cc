package db

import (
	"context"

	"github.com/tordrt/bizobj/internal/schema"
)

// Result reports the outcome of a write statement
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Row is a fetched row keyed by column name
type Row map[string]any

// Client executes parameterized statements against one relational database.
//
// Values in returned rows are normalized: byte slices become strings and
// driver-specific numeric types become float64.
type Client interface {
	// Dialect returns the SQL dialect rules of the connected database
	Dialect() Dialect

	// Exec runs a statement that returns no rows
	Exec(ctx context.Context, query string, args ...any) (Result, error)

	// Query runs a statement and buffers every returned row
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Columns lists the live columns of a table, or nothing if it does not exist
	Columns(ctx context.Context, table string) ([]schema.Column, error)

	// Close releases the connection
	Close() error
}
