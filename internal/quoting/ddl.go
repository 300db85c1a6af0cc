package quoting

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/bizobj"
)

// SQLiteDDL creates the quoting tables in an empty SQLite database, for local
// development and tests. Production schemas are managed outside this module.
const SQLiteDDL = `
CREATE TABLE IF NOT EXISTS customers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT,
	tax_id TEXT,
	date_of_birth TEXT,
	notes TEXT,
	created_at TEXT
);
CREATE TABLE IF NOT EXISTS agencies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	code TEXT NOT NULL UNIQUE,
	active BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS agency_contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agency_id INTEGER NOT NULL REFERENCES agencies(id),
	name TEXT NOT NULL,
	email TEXT,
	is_primary BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS underwriters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	naic_code TEXT NOT NULL UNIQUE,
	lines TEXT,
	licensed_at TEXT
);
CREATE TABLE IF NOT EXISTS agency_underwriters (
	agency_id INTEGER NOT NULL REFERENCES agencies(id),
	underwriter_id INTEGER NOT NULL REFERENCES underwriters(id),
	PRIMARY KEY (agency_id, underwriter_id)
);
`

// Bootstrap runs SQLiteDDL against client.
func Bootstrap(ctx context.Context, client bizobj.Client) error {
	if client.Dialect().Name != "sqlite" {
		return fmt.Errorf("bootstrap only supports sqlite, got %s", client.Dialect().Name)
	}
	for _, stmt := range strings.Split(SQLiteDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := client.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return nil
}
