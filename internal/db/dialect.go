package db

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported databases
type Dialect struct {
	Name string

	// UpdateLimit reports whether UPDATE and DELETE accept a LIMIT clause
	UpdateLimit bool

	// Returning reports whether INSERT ... RETURNING is used to read the new id
	Returning bool

	numbered bool
	quote    string
}

var (
	Postgres = Dialect{Name: "postgres", Returning: true, numbered: true, quote: `"`}
	MySQL    = Dialect{Name: "mysql", UpdateLimit: true, quote: "`"}
	SQLite   = Dialect{Name: "sqlite", quote: `"`}
)

// Placeholder returns the bind parameter marker for the n-th argument (1-based)
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Quote quotes an identifier
func (d Dialect) Quote(ident string) string {
	return d.quote + strings.ReplaceAll(ident, d.quote, d.quote+d.quote) + d.quote
}

// DefaultValuesInsert returns an INSERT that stores a row made only of column defaults
func (d Dialect) DefaultValuesInsert(table string) string {
	if d.Name == MySQL.Name {
		return "INSERT INTO " + d.Quote(table) + " () VALUES ()"
	}
	return "INSERT INTO " + d.Quote(table) + " DEFAULT VALUES"
}
