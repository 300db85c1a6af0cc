package bizobj

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Type is the declared value type of a property.
type Type string

const (
	TypeString    Type = "string"
	TypeNumber    Type = "number"
	TypeBoolean   Type = "boolean"
	TypeObject    Type = "object"
	TypeJSON      Type = "json"
	TypeTimestamp Type = "timestamp"
	TypeDate      Type = "date"
	TypeDatetime  Type = "datetime"
)

func (t Type) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeObject, TypeJSON,
		TypeTimestamp, TypeDate, TypeDatetime:
		return true
	}
	return false
}

func (t Type) temporal() bool {
	return t == TypeTimestamp || t == TypeDate || t == TypeDatetime
}

// Rule is a validation predicate. A property's rules are combined with AND
// and evaluated in order against the already type-checked value.
type Rule func(v any) bool

// SaveHandler persists an association that is not modeled as child entities,
// such as link-table rows. It runs after the owning entity's own row is written.
type SaveHandler func(ctx context.Context, e *Entity) error

// Property describes one column of an entity.
type Property struct {
	// Name is the accessor name, e.g. "agencyId".
	Name string

	// Column overrides the column name. Defaults to the snake_case form of Name.
	Column string

	Type     Type
	Default  any
	Required bool

	// Encrypted values are passed through the mapper's Encrypter before being written.
	Encrypted bool

	// Hashed values are passed through the mapper's Hasher before being written.
	Hashed bool

	Rules []Rule

	// Class is the schema of 1:N child entities owned by this property.
	Class *Schema

	// AssociatedField names the child property that receives the parent id
	// before each child is saved.
	AssociatedField string

	SaveHandler SaveHandler
}

// cascaded reports whether the property is persisted by the save cascade
// instead of as a column of the entity's own row.
func (p *Property) cascaded() bool {
	return p.Class != nil || p.SaveHandler != nil
}

// Schema is the static property table of one entity type.
type Schema struct {
	table    string
	props    []Property
	byName   map[string]int
	byColumn map[string]int
}

// NewSchema validates props and builds the schema for table.
func NewSchema(table string, props ...Property) (*Schema, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("schema: table name is required")
	}

	s := &Schema{
		table:    table,
		props:    make([]Property, len(props)),
		byName:   make(map[string]int, len(props)),
		byColumn: make(map[string]int, len(props)),
	}
	copy(s.props, props)

	for i := range s.props {
		p := &s.props[i]
		if p.Name == "" {
			return nil, fmt.Errorf("schema %s: property %d has no name", table, i)
		}
		if p.Column == "" {
			p.Column = snakeCase(p.Name)
		}
		if strings.EqualFold(p.Column, idColumn) {
			return nil, fmt.Errorf("schema %s: %q is managed by the mapper", table, p.Name)
		}
		if !p.Type.valid() {
			return nil, fmt.Errorf("schema %s: property %q has unknown type %q", table, p.Name, p.Type)
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate property %q", table, p.Name)
		}
		if _, dup := s.byColumn[p.Column]; dup {
			return nil, fmt.Errorf("schema %s: duplicate column %q", table, p.Column)
		}
		if p.Class != nil && p.SaveHandler != nil {
			return nil, fmt.Errorf("schema %s: property %q cannot have both a class and a save handler", table, p.Name)
		}
		if p.AssociatedField != "" {
			if p.Class == nil {
				return nil, fmt.Errorf("schema %s: property %q has an associated field but no class", table, p.Name)
			}
			if _, ok := p.Class.byName[p.AssociatedField]; !ok {
				return nil, fmt.Errorf("schema %s: associated field %q not found in %s", table, p.AssociatedField, p.Class.table)
			}
		}
		if p.Encrypted || p.Hashed {
			if p.Encrypted && p.Hashed {
				return nil, fmt.Errorf("schema %s: property %q cannot be both encrypted and hashed", table, p.Name)
			}
			if p.Type != TypeString {
				return nil, fmt.Errorf("schema %s: property %q must be a string to be encrypted or hashed", table, p.Name)
			}
		}

		s.byName[p.Name] = i
		s.byColumn[p.Column] = i
	}

	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid schema.
// It is meant for package-level schema variables.
func MustSchema(table string, props ...Property) *Schema {
	s, err := NewSchema(table, props...)
	if err != nil {
		panic(err)
	}
	return s
}

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// Properties returns a copy of the property list in declaration order.
func (s *Schema) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// Property looks up a property by name.
func (s *Schema) Property(name string) (Property, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Property{}, false
	}
	return s.props[i], true
}

const idColumn = "id"

// snakeCase converts an accessor name to its column name:
// "agencyId" -> "agency_id", "naicCode" -> "naic_code", "HTTPStatus" -> "http_status".
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
