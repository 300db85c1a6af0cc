package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/bizobj/internal/schema"
)

// MarkdownFormatter formats property schemas as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the entities in markdown format
func (f *MarkdownFormatter) Format(entities []schema.Entity) error {
	_, _ = fmt.Fprintln(f.writer, "# Entity Schemas")
	_, _ = fmt.Fprintln(f.writer)

	for _, entity := range entities {
		if err := f.formatEntity(entity); err != nil {
			return err
		}
	}
	return nil
}

// FormatEntity formats a single entity (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatEntity(entity schema.Entity) error {
	return f.formatEntity(entity)
}

// FormatDrift writes a schema check report as a table
func (f *MarkdownFormatter) FormatDrift(drifts []schema.Drift) error {
	_, _ = fmt.Fprintln(f.writer, "# Schema Check")
	_, _ = fmt.Fprintln(f.writer)

	if len(drifts) == 0 {
		_, _ = fmt.Fprintln(f.writer, "Every schema matches its table.")
		return nil
	}

	_, _ = fmt.Fprintln(f.writer, "| Table | Column | Kind | Detail |")
	_, _ = fmt.Fprintln(f.writer, "|-------|--------|------|--------|")
	for _, d := range drifts {
		_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %s |\n", d.Table, d.Column, d.Kind, d.Detail)
	}
	return nil
}

func (f *MarkdownFormatter) formatEntity(entity schema.Entity) error {
	// Entity header
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", entity.Table)

	// Properties
	_, _ = fmt.Fprintln(f.writer, "### Properties")
	_, _ = fmt.Fprintln(f.writer)

	var children []schema.Property
	for _, p := range entity.Properties {
		if p.Children != "" {
			children = append(children, p)
			continue
		}

		name := p.Name
		if p.Column != "" && p.Column != p.Name {
			name = fmt.Sprintf("%s (`%s`)", p.Name, p.Column)
		}

		constraintStr := f.formatConstraints(p)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", name, p.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", name, p.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	// Children
	if len(children) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Children")
		_, _ = fmt.Fprintln(f.writer)
		for _, p := range children {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s%s (1:N)\n", p.Name, p.Children, via(p.AssociatedField))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

func (f *MarkdownFormatter) formatConstraints(p schema.Property) string {
	var constraints []string

	if p.Required {
		constraints = append(constraints, "required")
	}

	if p.Encrypted {
		constraints = append(constraints, "encrypted")
	}

	if p.Hashed {
		constraints = append(constraints, "hashed")
	}

	if p.Default != "" {
		constraints = append(constraints, fmt.Sprintf("default %s", p.Default))
	}

	if p.Rules > 0 {
		constraints = append(constraints, fmt.Sprintf("%d rule%s", p.Rules, plural(p.Rules)))
	}

	if p.HasSaveHandler {
		constraints = append(constraints, "saved by handler")
	}

	return strings.Join(constraints, ", ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
