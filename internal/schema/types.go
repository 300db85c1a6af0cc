package schema

// Table represents a live database table as seen by the inspector
type Table struct {
	Name    string
	Columns []Column
}

// Column represents a live table column
type Column struct {
	Name         string
	Type         string
	Nullable     bool
	DefaultValue *string
	IsPrimaryKey bool
}

// Entity describes an entity type's property schema in a printable form
type Entity struct {
	Table      string
	Properties []Property
}

// Property describes one property of an entity schema
type Property struct {
	Name            string
	Column          string
	Type            string
	Default         string
	Required        bool
	Encrypted       bool
	Hashed          bool
	Rules           int
	Children        string // child table for 1:N properties
	AssociatedField string
	HasSaveHandler  bool
}

// DriftKind classifies a mismatch between a property schema and the live table
type DriftKind string

const (
	DriftMissingTable     DriftKind = "missing_table"
	DriftMissingColumn    DriftKind = "missing_column"
	DriftNullableRequired DriftKind = "nullable_required"
	DriftUncoveredNotNull DriftKind = "uncovered_not_null"
)

// Drift is a single schema check finding
type Drift struct {
	Table  string
	Column string
	Kind   DriftKind
	Detail string
}
