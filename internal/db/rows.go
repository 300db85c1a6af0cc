package db

import (
	"database/sql"
	"fmt"
)

// scanRows buffers database/sql rows into column-keyed maps
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// normalize converts driver representations into plain Go values
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	}
	return v
}
