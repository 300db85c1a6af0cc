package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient creates a new MySQL client.
//
// The DSN is forced to report matched rather than changed rows, so an UPDATE
// that rewrites identical values still counts as one affected row.
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := sql.OpenDB(connector)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db}, nil
}

// Dialect returns the MySQL dialect
func (c *MySQLClient) Dialect() Dialect {
	return MySQL
}

// Exec runs a statement that returns no rows
func (c *MySQLClient) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return execSQL(ctx, c.db, query, args...)
}

// Query runs a statement and buffers every returned row
func (c *MySQLClient) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return querySQL(ctx, c.db, query, args...)
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// execSQL runs a statement on a database/sql handle and collects its counters
func execSQL(ctx context.Context, db *sql.DB, query string, args ...any) (Result, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	// LastInsertId is meaningless for UPDATE/DELETE; ignore drivers that refuse it
	lastID, _ := res.LastInsertId()

	return Result{RowsAffected: affected, LastInsertID: lastID}, nil
}

// querySQL runs a query on a database/sql handle and buffers the rows
func querySQL(ctx context.Context, db *sql.DB, query string, args ...any) ([]Row, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}
