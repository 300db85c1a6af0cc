package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/bizobj/internal/schema"
)

// TextFormatter formats property schemas as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the entities in compact text format
func (f *TextFormatter) Format(entities []schema.Entity) error {
	for i, entity := range entities {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between entities
		}

		f.formatEntity(entity)
	}
	return nil
}

// FormatDrift writes a schema check report, one finding per line
func (f *TextFormatter) FormatDrift(drifts []schema.Drift) error {
	if len(drifts) == 0 {
		_, _ = fmt.Fprintln(f.writer, "OK: every schema matches its table")
		return nil
	}

	for _, d := range drifts {
		target := d.Table
		if d.Column != "" {
			target += "." + d.Column
		}
		_, _ = fmt.Fprintf(f.writer, "DRIFT %s: %s (%s)\n", target, d.Kind, d.Detail)
	}
	return nil
}

func (f *TextFormatter) formatEntity(entity schema.Entity) {
	_, _ = fmt.Fprintf(f.writer, "ENTITY %s (PK: id)\n", entity.Table)

	var children []schema.Property
	for _, p := range entity.Properties {
		if p.Children != "" {
			children = append(children, p)
			continue
		}
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatProperty(p))
	}

	// Children
	if len(children) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  CHILDREN:")
		for _, p := range children {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s%s\n", p.Name, p.Children, via(p.AssociatedField))
		}
	}
}

func formatProperty(p schema.Property) string {
	name := p.Name
	if p.Column != "" && p.Column != p.Name {
		name = fmt.Sprintf("%s (%s)", p.Name, p.Column)
	}
	parts := []string{name + ":", p.Type}

	if p.Required {
		parts = append(parts, "REQUIRED")
	}
	if p.Encrypted {
		parts = append(parts, "ENCRYPTED")
	}
	if p.Hashed {
		parts = append(parts, "HASHED")
	}
	if p.Default != "" {
		parts = append(parts, "DEFAULT "+p.Default)
	}
	if p.Rules > 0 {
		parts = append(parts, fmt.Sprintf("RULES(%d)", p.Rules))
	}
	if p.HasSaveHandler {
		parts = append(parts, "SAVE HANDLER")
	}

	return strings.Join(parts, " ")
}
