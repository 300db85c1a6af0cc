package bizobj

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/bizobj/internal/db"
)

func TestSaveInsertsEncryptedEntity(t *testing.T) {
	ctx := context.Background()
	m, rec := newTestMapper(t)

	e := m.New(companySchema)
	require.NoError(t, e.Load(map[string]any{"name": "Acme", "email": "a@b.com"}, ObjectLoad))
	require.NoError(t, e.Save(ctx))

	assert.Greater(t, e.ID(), int64(0))
	assert.Equal(t, []string{`INSERT INTO "companies" ("name", "email") VALUES (?, ?)`}, rec.statements())

	rows, err := rec.Client.Query(ctx, `SELECT name, email FROM companies WHERE id = ?`, e.ID())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["name"])
	assert.NotEqual(t, "a@b.com", rows[0]["email"])
	assert.Equal(t, "a@b.com", e.String("email"), "in-memory value stays plaintext")
}

func TestInsertRejectsPersistedEntity(t *testing.T) {
	ctx := context.Background()
	m, rec := newTestMapper(t)

	e := m.New(companySchema)
	require.NoError(t, e.Load(map[string]any{"name": "Acme", "email": "a@b.com"}, ObjectLoad))
	require.NoError(t, e.Insert(ctx))
	rec.reset()

	err := e.Insert(ctx)
	assert.ErrorIs(t, err, ErrAlreadyPersisted)
	assert.Empty(t, rec.statements())
}

func TestInsertThenGetByIDRoundTrips(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	e := m.New(policySchema)
	require.NoError(t, e.Load(map[string]any{
		"number":      "P-100",
		"premium":     1250.5,
		"active":      false,
		"effectiveOn": "2024-03-01T09:30:00+02:00",
		"details":     map[string]any{"limit": 1000, "deductible": "500"},
		"taxId":       "123-45-6789",
	}, ObjectLoad))
	require.NoError(t, e.Save(ctx))

	got := m.New(policySchema)
	require.NoError(t, got.GetByID(ctx, e.ID()))

	assert.Equal(t, e.ID(), got.ID())
	assert.Equal(t, "P-100", got.String("number"))
	assert.Equal(t, 1250.5, got.Float("premium"))
	assert.Equal(t, false, got.Value("active"))
	assert.Equal(t, "2024-03-01 07:30:00", got.String("effectiveOn"), "temporal values are written as UTC")
	assert.Equal(t, map[string]any{"limit": float64(1000), "deductible": "500"}, got.Value("details"))
	assert.Equal(t, "hash:123-45-6789", got.String("taxId"))
}

func TestSparseInsertLetsDefaultsApply(t *testing.T) {
	ctx := context.Background()
	m, rec := newTestMapper(t)

	s := MustSchema("policies",
		Property{Name: "number", Type: TypeString, Required: true},
		Property{Name: "active", Type: TypeBoolean},
		Property{Name: "premium", Type: TypeNumber},
	)
	e := m.New(s)
	require.NoError(t, e.Set("number", "P-1"))
	require.NoError(t, e.Set("premium", 0))
	require.NoError(t, e.Insert(ctx))

	assert.Equal(t, []string{`INSERT INTO "policies" ("number", "premium") VALUES (?, ?)`}, rec.statements())

	got := m.New(s)
	require.NoError(t, got.GetByID(ctx, e.ID()))
	assert.Equal(t, true, got.Value("active"), "database default applied")
	assert.Equal(t, float64(0), got.Value("premium"), "zero is written, not dropped")
}

func TestUpdateWritesFalsyValues(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	e := m.New(policySchema)
	require.NoError(t, e.Load(map[string]any{"number": "P-1", "premium": 100, "details": map[string]any{"a": 1}}, ObjectLoad))
	require.NoError(t, e.Save(ctx))
	id := e.ID()

	require.NoError(t, e.Set("active", false))
	require.NoError(t, e.Set("premium", 0))
	require.NoError(t, e.Set("details", map[string]any{}))
	require.NoError(t, e.Save(ctx))
	assert.Equal(t, id, e.ID(), "save of a persisted entity updates in place")

	got := m.New(policySchema)
	require.NoError(t, got.GetByID(ctx, id))
	assert.Equal(t, false, got.Value("active"))
	assert.Equal(t, float64(0), got.Value("premium"))
	assert.Equal(t, map[string]any{}, got.Value("details"))
}

func TestUpdateMissingRowIsInternal(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	e := m.New(companySchema)
	require.NoError(t, e.Load(map[string]any{"name": "Acme", "email": "a@b.com"}, ObjectLoad))
	e.id = 999

	err := e.Update(ctx)
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUpdateWithoutIDIssuesNoSQL(t *testing.T) {
	m, rec := newTestMapper(t)
	e := m.New(companySchema)

	err := e.Update(context.Background())
	assert.ErrorIs(t, err, ErrInternal)
	assert.Empty(t, rec.statements())
}

func TestDuplicateKeyIsConflict(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	first := m.New(policySchema)
	require.NoError(t, first.Set("number", "P-1"))
	require.NoError(t, first.Save(ctx))

	second := m.New(policySchema)
	require.NoError(t, second.Set("number", "P-1"))
	err := second.Save(ctx)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(0), second.ID())

	require.NoError(t, second.Set("number", "P-2"))
	require.NoError(t, second.Save(ctx))

	require.NoError(t, second.Set("number", "P-1"))
	assert.ErrorIs(t, second.Update(ctx), ErrConflict)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	s := MustSchema("no_such_table", Property{Name: "name", Type: TypeString})
	e := m.New(s)
	require.NoError(t, e.Set("name", "x"))

	err := e.Save(ctx)
	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "no such table", "driver detail must not leak")
}

func TestInternalErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	stub := &stubClient{dialect: db.MySQL, result: Result{RowsAffected: 0}}
	m := NewMapper(stub, WithLogger(zerolog.New(&buf)))

	e := m.New(contactSchema)
	require.NoError(t, e.Set("name", "Ann"))
	e.id = 4

	err := e.Update(context.Background())
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, buf.String(), `"table":"contacts"`)
	assert.Contains(t, buf.String(), `"id":4`)
	assert.Contains(t, buf.String(), "0 rows affected")
}

func TestMissingEncrypterIsInternal(t *testing.T) {
	ctx := context.Background()
	_, rec := newTestMapper(t)
	bare := NewMapper(rec)

	e := bare.New(companySchema)
	require.NoError(t, e.Load(map[string]any{"name": "Acme", "email": "a@b.com"}, ObjectLoad))
	assert.ErrorIs(t, e.Save(ctx), ErrInternal)
	assert.Empty(t, rec.statements())
}

func TestGetByIDNotFound(t *testing.T) {
	m, _ := newTestMapper(t)
	e := m.New(companySchema)

	err := e.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), e.ID())
}

func TestSaveCascadesHandlersThenChildren(t *testing.T) {
	ctx := context.Background()
	m, rec := newTestMapper(t)

	var order []string
	handler := func(ctx context.Context, e *Entity) error {
		order = append(order, "handler")
		require.Greater(t, e.ID(), int64(0), "handler runs after the parent row exists")

		tags, _ := e.Value("tags").([]any)
		for _, tag := range tags {
			if _, err := e.Mapper().Client().Exec(ctx, `INSERT INTO agency_tags (agency_id, tag) VALUES (?, ?)`, e.ID(), tag); err != nil {
				return err
			}
		}
		return nil
	}

	agency := m.New(agencySchema(handler))
	require.NoError(t, agency.Load(map[string]any{
		"name":     "North Agency",
		"contacts": []any{map[string]any{"name": "Ann"}, map[string]any{"name": "Bob"}},
		"tags":     []any{"auto", "home"},
	}, ObjectLoad))
	require.NoError(t, agency.Save(ctx))

	require.Greater(t, agency.ID(), int64(0))
	for _, child := range agency.Children("contacts") {
		assert.Greater(t, child.ID(), int64(0))
		assert.Equal(t, agency.ID(), child.Int("agencyId"))
	}
	assert.Equal(t, []string{"handler"}, order)

	stmts := rec.statements()
	require.Len(t, stmts, 5)
	assert.Contains(t, stmts[0], `INSERT INTO "agencies"`)
	assert.Contains(t, stmts[1], `INSERT INTO agency_tags`)
	assert.Contains(t, stmts[2], `INSERT INTO agency_tags`)
	assert.Equal(t, `INSERT INTO "contacts" ("agency_id", "name") VALUES (?, ?)`, stmts[3])
	assert.Contains(t, stmts[4], `INSERT INTO "contacts"`)

	// a second save updates the parent and every child
	rec.reset()
	require.NoError(t, agency.Children("contacts")[0].Set("name", "Ann B."))
	require.NoError(t, agency.Save(ctx))
	assert.Equal(t, 3, rec.count("UPDATE"))
}

func TestSaveCascadeStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	m, rec := newTestMapper(t)

	boom := errors.New("link table unavailable")
	agency := m.New(agencySchema(func(context.Context, *Entity) error { return boom }))
	require.NoError(t, agency.Load(map[string]any{
		"name":     "North Agency",
		"contacts": []any{map[string]any{"name": "Ann"}},
	}, ObjectLoad))

	err := agency.Save(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Greater(t, agency.ID(), int64(0), "parent row stays written")
	assert.Equal(t, int64(0), agency.Children("contacts")[0].ID(), "children after the failure are not saved")
	assert.Equal(t, 0, rec.count(`INSERT INTO "contacts"`))
}

func TestSaveCascadeChildFailure(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	agency := m.New(agencySchema(func(context.Context, *Entity) error { return nil }))
	require.NoError(t, agency.Set("name", "North Agency"))

	ok, err := agency.NewChild("contacts")
	require.NoError(t, err)
	require.NoError(t, ok.Set("name", "Ann"))
	_, err = agency.NewChild("contacts") // name is NOT NULL in the table
	require.NoError(t, err)

	err = agency.Save(ctx)
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "contacts[1]")
	assert.Greater(t, agency.Children("contacts")[0].ID(), int64(0))
}

func TestFetchChildren(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)
	s := agencySchema(func(context.Context, *Entity) error { return nil })

	agency := m.New(s)
	require.NoError(t, agency.Load(map[string]any{
		"name":     "North Agency",
		"contacts": []any{map[string]any{"name": "Ann"}, map[string]any{"name": "Bob"}},
	}, ObjectLoad))
	require.NoError(t, agency.Save(ctx))

	got := m.New(s)
	require.NoError(t, got.GetByID(ctx, agency.ID()))
	assert.Empty(t, got.Children("contacts"))

	require.NoError(t, got.FetchChildren(ctx, "contacts"))
	children := got.Children("contacts")
	require.Len(t, children, 2)
	assert.Equal(t, "Ann", children[0].String("name"))
	assert.Equal(t, "Bob", children[1].String("name"))
	assert.Same(t, got, children[0].Owner())

	assert.Error(t, got.FetchChildren(ctx, "name"))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	e := m.New(companySchema)
	require.NoError(t, e.Load(map[string]any{"name": "Acme", "email": "a@b.com"}, ObjectLoad))
	require.NoError(t, e.Save(ctx))
	id := e.ID()

	require.NoError(t, e.Delete(ctx))
	assert.Equal(t, int64(0), e.ID())
	assert.ErrorIs(t, m.New(companySchema).GetByID(ctx, id), ErrNotFound)

	e.id = id
	assert.ErrorIs(t, e.Delete(ctx), ErrNotFound)

	e.id = 0
	assert.ErrorIs(t, e.Delete(ctx), ErrInternal)
}

func TestPostgresDialectStatements(t *testing.T) {
	ctx := context.Background()
	stub := &stubClient{dialect: db.Postgres, rows: []Row{{"id": int64(12)}}, result: Result{RowsAffected: 1}}
	m := NewMapper(stub, WithEncrypter(prefixEncrypter{}))

	e := m.New(companySchema)
	require.NoError(t, e.Load(map[string]any{"name": "Acme", "email": "a@b.com"}, ObjectLoad))
	require.NoError(t, e.Insert(ctx))
	assert.Equal(t, int64(12), e.ID())
	assert.Equal(t, `INSERT INTO "companies" ("name", "email") VALUES ($1, $2) RETURNING "id"`, stub.queries[0])
	assert.Equal(t, []any{"Acme", "enc:a@b.com"}, stub.args[0])

	require.NoError(t, e.Update(ctx))
	assert.Equal(t, `UPDATE "companies" SET "name" = $1, "email" = $2 WHERE "id" = $3`, stub.queries[1])
	assert.Equal(t, []any{"Acme", "enc:a@b.com", int64(12)}, stub.args[1])
}

func TestMySQLDialectStatements(t *testing.T) {
	ctx := context.Background()
	stub := &stubClient{dialect: db.MySQL, result: Result{RowsAffected: 1, LastInsertID: 3}}
	m := NewMapper(stub)

	e := m.New(contactSchema)
	require.NoError(t, e.Insert(ctx))
	assert.Equal(t, "INSERT INTO `contacts` () VALUES ()", stub.queries[0])
	assert.Equal(t, int64(3), e.ID())

	require.NoError(t, e.Set("name", "Ann"))
	require.NoError(t, e.Update(ctx))
	assert.Equal(t, "UPDATE `contacts` SET `name` = ? WHERE `id` = ? LIMIT 1", stub.queries[1])

	require.NoError(t, e.Delete(ctx))
	assert.Equal(t, "DELETE FROM `contacts` WHERE `id` = ? LIMIT 1", stub.queries[2])
}

func TestUpdateWithNothingSetChecksRowExists(t *testing.T) {
	stub := &stubClient{dialect: db.SQLite, rows: []Row{{"1": int64(1)}}}
	e := NewMapper(stub).New(contactSchema)
	e.id = 1

	require.NoError(t, e.Update(context.Background()))
	require.Len(t, stub.queries, 1)
	assert.Equal(t, `SELECT 1 FROM "contacts" WHERE "id" = ? LIMIT 1`, stub.queries[0])
	assert.Equal(t, []any{int64(1)}, stub.args[0])
}

func TestUpdateWithNothingSetMissingRowIsInternal(t *testing.T) {
	ctx := context.Background()
	m, rec := newTestMapper(t)

	e := m.New(contactSchema)
	e.id = 999

	err := e.Update(ctx)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 1, rec.count("SELECT 1 FROM"))
	assert.Zero(t, rec.count("UPDATE"))
}

func TestGetByIDKeepsIDOnLoadFailure(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	_, err := m.Client().Exec(ctx, `INSERT INTO policies (id, number, premium) VALUES (5, 'P-5', 'lots')`)
	require.NoError(t, err)

	e := m.New(policySchema)
	err = e.GetByID(ctx, 5)
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, int64(0), e.ID())

	require.NoError(t, e.Set("number", "P-6"))
	require.NoError(t, e.Save(ctx))
	assert.NotEqual(t, int64(5), e.ID())

	rows, err := m.Client().Query(ctx, `SELECT number FROM policies WHERE id = 5`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P-5", rows[0]["number"])
}
