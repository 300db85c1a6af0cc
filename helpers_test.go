package bizobj

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/bizobj/internal/db"
	"github.com/tordrt/bizobj/internal/schema"
)

// recorder wraps a client and keeps every statement sent through it.
type recorder struct {
	Client

	mu    sync.Mutex
	stmts []string
}

func (r *recorder) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	r.record(query)
	return r.Client.Exec(ctx, query, args...)
}

func (r *recorder) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	r.record(query)
	return r.Client.Query(ctx, query, args...)
}

func (r *recorder) record(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, strings.TrimSpace(query))
}

func (r *recorder) statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stmts...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = nil
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, s := range r.statements() {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

// prefixEncrypter is a reversible stand-in for the real encryption adapter.
type prefixEncrypter struct{}

func (prefixEncrypter) Encrypt(_ context.Context, plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(plaintext string) (string, error) {
	return "hash:" + plaintext, nil
}

const testDDL = `
CREATE TABLE companies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL
);
CREATE TABLE policies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	premium REAL,
	active BOOLEAN NOT NULL DEFAULT 1,
	effective_on TEXT,
	details TEXT,
	tax_id TEXT
);
CREATE TABLE agencies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agency_id INTEGER REFERENCES agencies(id),
	name TEXT NOT NULL
);
CREATE TABLE agency_tags (
	agency_id INTEGER NOT NULL,
	tag TEXT NOT NULL
);
`

var (
	companySchema = MustSchema("companies",
		Property{Name: "name", Type: TypeString, Required: true},
		Property{Name: "email", Type: TypeString, Required: true, Encrypted: true},
	)

	policySchema = MustSchema("policies",
		Property{Name: "number", Type: TypeString, Required: true, Rules: []Rule{NotBlank(), MaxLength(10)}},
		Property{Name: "premium", Type: TypeNumber, Rules: []Rule{Min(0)}},
		Property{Name: "active", Type: TypeBoolean, Default: true},
		Property{Name: "effectiveOn", Type: TypeDate},
		Property{Name: "details", Type: TypeObject},
		Property{Name: "taxId", Type: TypeString, Hashed: true},
	)

	contactSchema = MustSchema("contacts",
		Property{Name: "agencyId", Type: TypeNumber},
		Property{Name: "name", Type: TypeString, Required: true},
	)
)

// agencySchema builds a parent schema whose tags are written by handler.
func agencySchema(handler SaveHandler) *Schema {
	return MustSchema("agencies",
		Property{Name: "name", Type: TypeString, Required: true},
		Property{Name: "contacts", Type: TypeObject, Class: contactSchema, AssociatedField: "agencyId"},
		Property{Name: "tags", Type: TypeObject, SaveHandler: handler},
	)
}

// newTestMapper returns a mapper over a fresh in-memory SQLite database.
func newTestMapper(t *testing.T) (*Mapper, *recorder) {
	t.Helper()

	client, err := db.NewSQLiteClient(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, stmt := range strings.Split(testDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := client.Exec(context.Background(), stmt)
		require.NoError(t, err)
	}

	rec := &recorder{Client: client}
	return NewMapper(rec, WithEncrypter(prefixEncrypter{}), WithHasher(prefixHasher{})), rec
}

// stubClient answers every statement with canned results and records it.
type stubClient struct {
	dialect db.Dialect
	result  Result
	rows    []Row
	err     error

	queries []string
	args    [][]any
}

func (s *stubClient) Dialect() db.Dialect { return s.dialect }

func (s *stubClient) Exec(_ context.Context, query string, args ...any) (Result, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return s.result, s.err
}

func (s *stubClient) Query(_ context.Context, query string, args ...any) ([]Row, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return s.rows, s.err
}

func (s *stubClient) Columns(context.Context, string) ([]schema.Column, error) { return nil, nil }

func (s *stubClient) Close() error { return nil }
