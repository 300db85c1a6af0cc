package bizobj

import (
	"fmt"
)

// LoadMode selects how Load treats missing and malformed values.
type LoadMode int

const (
	// ObjectLoad hydrates from caller-supplied data: a missing required
	// property or any invalid value fails immediately.
	ObjectLoad LoadMode = iota

	// DatabaseLoad hydrates from a fetched row: every property is attempted
	// and all failures are reported together in a *LoadError.
	DatabaseLoad
)

func (m LoadMode) String() string {
	if m == DatabaseLoad {
		return "database"
	}
	return "object"
}

// Load assigns data to the entity's properties through Set.
//
// Keys are matched by property name and, failing that, by column name.
// Elements of a class property's list become child entities loaded with the
// same mode. In DatabaseLoad mode an "id" key also sets the entity's id.
func (e *Entity) Load(data map[string]any, mode LoadMode) error {
	if mode == DatabaseLoad {
		return e.loadRow(data)
	}
	return e.loadObject(data)
}

func (e *Entity) loadObject(data map[string]any) error {
	for i := range e.schema.props {
		p := &e.schema.props[i]
		v, ok := lookup(data, p)
		if !ok || v == nil {
			if p.Required {
				return invalid(p, "is required")
			}
			if !ok {
				continue
			}
		}

		if p.Class != nil && v != nil {
			if err := e.loadChildren(i, v, ObjectLoad); err != nil {
				return err
			}
			continue
		}
		if err := e.assign(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entity) loadRow(data map[string]any) error {
	var errs []error

	if raw, ok := data[idColumn]; ok && raw != nil {
		if id, ok := toInt64(raw); ok {
			e.id = id
		} else {
			errs = append(errs, &ValidationError{Property: idColumn, Reason: fmt.Sprintf("expected integer, got %T", raw)})
		}
	}

	for i := range e.schema.props {
		p := &e.schema.props[i]
		v, ok := lookup(data, p)
		if !ok || v == nil {
			if p.Required && p.Class == nil {
				errs = append(errs, invalid(p, "is required"))
			}
			if ok && p.Class == nil {
				e.values[i] = absentValue(p)
				e.stored[i] = false
			}
			continue
		}

		if p.Class != nil {
			if err := e.loadChildren(i, v, DatabaseLoad); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := e.assign(i, decodeColumn(p, v)); err != nil {
			errs = append(errs, err)
			continue
		}
		e.stored[i] = p.Encrypted || p.Hashed
	}

	if len(errs) > 0 {
		return &LoadError{Table: e.schema.table, Errs: errs}
	}
	return nil
}

// loadChildren replaces a class property's children with entities built from
// the raw list elements.
func (e *Entity) loadChildren(i int, raw any, mode LoadMode) error {
	p := &e.schema.props[i]
	items, ok := asList(raw)
	if !ok {
		return invalid(p, "expected a list, got %T", raw)
	}

	children := make([]*Entity, 0, len(items))
	var errs []error
	for n, item := range items {
		switch it := item.(type) {
		case *Entity:
			if err := e.adopt(p, it); err != nil {
				return err
			}
			children = append(children, it)
		case map[string]any, Row:
			child := e.m.New(p.Class)
			child.owner = e
			if err := child.Load(asMap(it), mode); err != nil {
				wrapped := fmt.Errorf("%s[%d]: %w", p.Name, n, err)
				if mode == ObjectLoad {
					return wrapped
				}
				errs = append(errs, wrapped)
			}
			children = append(children, child)
		default:
			err := invalid(p, "element %d: expected an object, got %T", n, item)
			if mode == ObjectLoad {
				return err
			}
			errs = append(errs, err)
		}
	}

	for _, rule := range p.Rules {
		if !rule(children) {
			err := invalid(p, "failed rule")
			if mode == ObjectLoad {
				return err
			}
			errs = append(errs, err)
			break
		}
	}

	e.values[i] = children
	if len(errs) > 0 {
		return &LoadError{Table: p.Class.table, Errs: errs}
	}
	return nil
}

func lookup(data map[string]any, p *Property) (any, bool) {
	if v, ok := data[p.Name]; ok {
		return v, true
	}
	if p.Column != p.Name {
		v, ok := data[p.Column]
		return v, ok
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []Row:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []*Entity:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	}
	return nil, false
}

func asMap(v any) map[string]any {
	if r, ok := v.(Row); ok {
		return map[string]any(r)
	}
	return v.(map[string]any)
}
