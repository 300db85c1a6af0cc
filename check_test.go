package bizobj

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/bizobj/internal/db"
	"github.com/tordrt/bizobj/internal/schema"
)

func TestCheckCleanSchemas(t *testing.T) {
	m, _ := newTestMapper(t)

	drifts, err := Check(context.Background(), m.Client(), companySchema, agencySchema(func(context.Context, *Entity) error { return nil }))
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestCheckReportsDrift(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMapper(t)

	_, err := m.Client().Exec(ctx, `CREATE TABLE brokers (id INTEGER PRIMARY KEY, name TEXT, license TEXT NOT NULL)`)
	require.NoError(t, err)

	child := MustSchema("broker_offices", Property{Name: "city", Type: TypeString})
	brokers := MustSchema("brokers",
		Property{Name: "name", Type: TypeString, Required: true},
		Property{Name: "region", Type: TypeString},
		Property{Name: "offices", Type: TypeObject, Class: child},
	)

	drifts, err := Check(ctx, m.Client(), brokers)
	require.NoError(t, err)

	got := make(map[schema.DriftKind][]string)
	for _, d := range drifts {
		got[d.Kind] = append(got[d.Kind], d.Table+"."+d.Column)
	}
	assert.Equal(t, map[schema.DriftKind][]string{
		schema.DriftNullableRequired: {"brokers.name"},
		schema.DriftMissingColumn:    {"brokers.region"},
		schema.DriftUncoveredNotNull: {"brokers.license"},
		schema.DriftMissingTable:     {"broker_offices."},
	}, got)
}

func TestCheckInspectionFailure(t *testing.T) {
	stub := &failingColumns{stubClient: stubClient{dialect: db.SQLite}}
	_, err := Check(context.Background(), stub, companySchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "companies")
}

type failingColumns struct {
	stubClient
}

func (f *failingColumns) Columns(context.Context, string) ([]schema.Column, error) {
	return nil, errors.New("permission denied")
}
