package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient manages the connection pool to PostgreSQL
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

// Dialect returns the PostgreSQL dialect
func (c *PostgresClient) Dialect() Dialect {
	return Postgres
}

// Exec runs a statement that returns no rows
func (c *PostgresClient) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return Result{RowsAffected: tag.RowsAffected()}, nil
}

// Query runs a statement and buffers every returned row
func (c *PostgresClient) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizePostgres(values[i])
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// Close closes the connection pool
func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}

func normalizePostgres(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return normalize(v)
}
