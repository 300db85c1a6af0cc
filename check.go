package bizobj

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/bizobj/internal/schema"
)

// Check compares each schema, and the schemas of its child classes, with the
// live tables the client can see. It reports drift rather than failing on it;
// the error is only set when the database cannot be inspected.
func Check(ctx context.Context, client Client, schemas ...*Schema) ([]schema.Drift, error) {
	var drifts []schema.Drift
	seen := make(map[*Schema]bool)

	var visit func(s *Schema) error
	visit = func(s *Schema) error {
		if seen[s] {
			return nil
		}
		seen[s] = true

		cols, err := client.Columns(ctx, s.table)
		if err != nil {
			return fmt.Errorf("failed to inspect table %s: %w", s.table, err)
		}
		drifts = append(drifts, compare(s, cols)...)

		for i := range s.props {
			if c := s.props[i].Class; c != nil {
				if err := visit(c); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, s := range schemas {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return drifts, nil
}

func compare(s *Schema, cols []schema.Column) []schema.Drift {
	if len(cols) == 0 {
		return []schema.Drift{{
			Table:  s.table,
			Kind:   schema.DriftMissingTable,
			Detail: "table does not exist",
		}}
	}

	live := make(map[string]schema.Column, len(cols))
	for _, c := range cols {
		live[strings.ToLower(c.Name)] = c
	}

	var drifts []schema.Drift
	if _, ok := live[idColumn]; !ok {
		drifts = append(drifts, schema.Drift{
			Table:  s.table,
			Column: idColumn,
			Kind:   schema.DriftMissingColumn,
			Detail: "primary key column is missing",
		})
	}

	covered := map[string]bool{idColumn: true}
	for i := range s.props {
		p := &s.props[i]
		if p.cascaded() {
			continue
		}
		key := strings.ToLower(p.Column)
		covered[key] = true

		col, ok := live[key]
		if !ok {
			drifts = append(drifts, schema.Drift{
				Table:  s.table,
				Column: p.Column,
				Kind:   schema.DriftMissingColumn,
				Detail: fmt.Sprintf("property %s has no column", p.Name),
			})
			continue
		}
		if p.Required && col.Nullable {
			drifts = append(drifts, schema.Drift{
				Table:  s.table,
				Column: p.Column,
				Kind:   schema.DriftNullableRequired,
				Detail: fmt.Sprintf("property %s is required but the column is nullable", p.Name),
			})
		}
	}

	for _, c := range cols {
		if covered[strings.ToLower(c.Name)] || c.Nullable || c.DefaultValue != nil || c.IsPrimaryKey {
			continue
		}
		drifts = append(drifts, schema.Drift{
			Table:  s.table,
			Column: c.Name,
			Kind:   schema.DriftUncoveredNotNull,
			Detail: "NOT NULL column without default is not written by any property",
		})
	}
	return drifts
}

// Describe returns the printable form of the schema.
func (s *Schema) Describe() schema.Entity {
	out := schema.Entity{
		Table:      s.table,
		Properties: make([]schema.Property, len(s.props)),
	}
	for i := range s.props {
		p := &s.props[i]
		d := schema.Property{
			Name:            p.Name,
			Column:          p.Column,
			Type:            string(p.Type),
			Required:        p.Required,
			Encrypted:       p.Encrypted,
			Hashed:          p.Hashed,
			Rules:           len(p.Rules),
			AssociatedField: p.AssociatedField,
			HasSaveHandler:  p.SaveHandler != nil,
		}
		if p.Default != nil {
			d.Default = fmt.Sprintf("%v", p.Default)
		}
		if p.Class != nil {
			d.Children = p.Class.table
			d.Column = ""
		}
		if p.SaveHandler != nil {
			d.Column = ""
		}
		out.Properties[i] = d
	}
	return out
}
