package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/bizobj/internal/schema"
)

// Columns extracts column information for a table
func (c *SQLiteClient) Columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", SQLite.Quote(tableName))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}

		col := schema.Column{
			Name:         name,
			Type:         colType,
			Nullable:     notNull == 0 && pk == 0,
			IsPrimaryKey: pk > 0,
		}
		if dfltValue.Valid {
			v := dfltValue.String
			col.DefaultValue = &v
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}
