package bizobj

import (
	"fmt"
	"time"
)

// Entity is one in-memory row of a schema's table.
//
// Values are only reachable through Set and the typed getters, so every
// stored value has passed its property's type check and rules. An Entity is
// not safe for concurrent mutation.
type Entity struct {
	m      *Mapper
	schema *Schema
	id     int64
	values []any

	// stored marks encrypted or hashed values that were read back from the
	// database and must not be transformed a second time.
	stored []bool

	owner *Entity
}

// New creates an unsaved entity of schema s with every property at its default.
func (m *Mapper) New(s *Schema) *Entity {
	e := &Entity{
		m:      m,
		schema: s,
		values: make([]any, len(s.props)),
		stored: make([]bool, len(s.props)),
	}
	for i := range s.props {
		p := &s.props[i]
		if p.Class != nil {
			e.values[i] = []*Entity{}
			continue
		}
		e.values[i] = absentValue(p)
	}
	return e
}

// ID returns the primary key, or 0 if the entity has never been inserted.
func (e *Entity) ID() int64 { return e.id }

// Schema returns the entity's schema.
func (e *Entity) Schema() *Schema { return e.schema }

// Mapper returns the mapper the entity was created by.
func (e *Entity) Mapper() *Mapper { return e.m }

// Owner returns the parent entity of a child, or nil.
func (e *Entity) Owner() *Entity { return e.owner }

// Set validates v against the named property and stores it.
//
// A nil v resets the property to its default. Any other value must match the
// property's type and pass all of its rules; strings are trimmed first and
// temporal values are stored as strings. Class properties accept []*Entity.
func (e *Entity) Set(name string, v any) error {
	i, ok := e.schema.byName[name]
	if !ok {
		return &ValidationError{Property: name, Reason: "unknown property"}
	}
	return e.assign(i, v)
}

func (e *Entity) assign(i int, v any) error {
	p := &e.schema.props[i]
	if p.Class != nil {
		return e.setChildren(i, v)
	}

	e.stored[i] = false
	if isAbsent(v) || emptyTemporal(p, v) {
		e.values[i] = absentValue(p)
		return nil
	}

	nv, err := coerce(p.Type, v)
	if err != nil {
		return invalid(p, "%v", err)
	}
	for n, rule := range p.Rules {
		if !rule(nv) {
			return invalid(p, "failed rule %d", n+1)
		}
	}

	e.values[i] = nv
	return nil
}

// emptyTemporal reports a blank date or time, which counts as unset.
func emptyTemporal(p *Property, v any) bool {
	if !p.Type.temporal() {
		return false
	}
	s, ok := temporalString(v)
	return ok && s == ""
}

// absentValue is what an unset property holds: its default, or "" when the
// default does not fit the declared type.
func absentValue(p *Property) any {
	if p.Default == nil || matches(p.Type, p.Default) {
		return p.Default
	}
	return ""
}

// Value returns the stored value of the named property, or nil.
func (e *Entity) Value(name string) any {
	i, ok := e.schema.byName[name]
	if !ok {
		return nil
	}
	return e.values[i]
}

// String returns a string property, or "" if unset.
func (e *Entity) String(name string) string {
	s, _ := e.Value(name).(string)
	return s
}

// Int returns a number property truncated to an integer, or 0 if unset.
func (e *Entity) Int(name string) int64 {
	n, _ := toInt64(e.Value(name))
	return n
}

// Float returns a number property, or 0 if unset.
func (e *Entity) Float(name string) float64 {
	f, _ := toFloat64(e.Value(name))
	return f
}

// Bool returns a boolean property, or false if unset.
func (e *Entity) Bool(name string) bool {
	b, _ := e.Value(name).(bool)
	return b
}

// Time parses a temporal property. ok is false if it is unset.
func (e *Entity) Time(name string) (t time.Time, ok bool) {
	s, isStr := e.Value(name).(string)
	if !isStr || s == "" {
		return time.Time{}, false
	}
	t, err := parseTemporal(s)
	return t, err == nil
}

// Children returns the child entities of a class property in save order.
func (e *Entity) Children(name string) []*Entity {
	children, _ := e.Value(name).([]*Entity)
	return children
}

// NewChild creates an entity of the property's class owned by e and appends it.
func (e *Entity) NewChild(name string) (*Entity, error) {
	i, err := e.classIndex(name)
	if err != nil {
		return nil, err
	}
	child := e.m.New(e.schema.props[i].Class)
	child.owner = e
	e.values[i] = append(e.values[i].([]*Entity), child)
	return child, nil
}

// AddChild appends child to a class property. A child belongs to exactly one
// parent; adding one owned elsewhere is rejected.
func (e *Entity) AddChild(name string, child *Entity) error {
	i, err := e.classIndex(name)
	if err != nil {
		return err
	}
	p := &e.schema.props[i]
	if err := e.adopt(p, child); err != nil {
		return err
	}
	e.values[i] = append(e.values[i].([]*Entity), child)
	return nil
}

func (e *Entity) setChildren(i int, v any) error {
	p := &e.schema.props[i]
	if isAbsent(v) {
		e.values[i] = []*Entity{}
		return nil
	}
	children, ok := v.([]*Entity)
	if !ok {
		return invalid(p, "expected child entities, got %T", v)
	}
	for _, child := range children {
		if err := e.adopt(p, child); err != nil {
			return err
		}
	}
	for _, rule := range p.Rules {
		if !rule(children) {
			return invalid(p, "failed rule")
		}
	}
	e.values[i] = append([]*Entity{}, children...)
	return nil
}

func (e *Entity) adopt(p *Property, child *Entity) error {
	if child == nil || child.schema != p.Class {
		return invalid(p, "child must be a %s entity", p.Class.table)
	}
	if child.owner != nil && child.owner != e {
		return invalid(p, "child already belongs to another %s", e.schema.table)
	}
	child.owner = e
	return nil
}

func (e *Entity) classIndex(name string) (int, error) {
	i, ok := e.schema.byName[name]
	if !ok {
		return 0, &ValidationError{Property: name, Reason: "unknown property"}
	}
	if e.schema.props[i].Class == nil {
		return 0, fmt.Errorf("bizobj: %s.%s has no child class", e.schema.table, name)
	}
	return i, nil
}
