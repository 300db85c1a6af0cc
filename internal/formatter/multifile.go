package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/bizobj/internal/schema"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes entity schemas to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the entities to multiple files
func (f *MultiFileFormatter) Format(entities []schema.Entity) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write overview file
	if err := f.writeOverview(entities); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	// Write per-entity files
	for _, entity := range entities {
		if err := f.writeEntityFile(entity, entities); err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", entity.Table, err)
		}
	}

	return nil
}

// writeOverview writes the overview file
func (f *MultiFileFormatter) writeOverview(entities []schema.Entity) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, "_overview"+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# Entity Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each entity has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(file, "## Entities\n\n")
	} else {
		_, _ = fmt.Fprintf(file, "ENTITY OVERVIEW\n")
		_, _ = fmt.Fprintf(file, "Each entity has a file: <table_name>%s\n\n", ext)
	}

	for _, entity := range sortedByTable(entities) {
		line := entity.Table
		if f.OutputFormat == formatMarkdown {
			line = "- **" + entity.Table + "**"
		}
		if targets := childTables(entity); len(targets) > 0 {
			line += fmt.Sprintf(" (children: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(file, line)
	}

	return nil
}

// writeEntityFile writes a single entity to its own file
func (f *MultiFileFormatter) writeEntityFile(entity schema.Entity, all []schema.Entity) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, entity.Table+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	owners := findOwners(entity.Table, all)

	if f.OutputFormat == formatMarkdown {
		if err := NewMarkdownFormatter(file).FormatEntity(entity); err != nil {
			return err
		}
		if len(owners) > 0 {
			_, _ = fmt.Fprintf(file, "### Owned by\n\n")
			for _, o := range owners {
				_, _ = fmt.Fprintf(file, "- %s.%s%s\n", o.Table, o.Property, via(o.AssociatedField))
			}
			_, _ = fmt.Fprintln(file)
		}
		return nil
	}

	if err := NewTextFormatter(file).Format([]schema.Entity{entity}); err != nil {
		return err
	}
	writeTextOwners(file, owners)
	return nil
}

func writeTextOwners(w io.Writer, owners []Owner) {
	if len(owners) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "  OWNED BY:")
	for _, o := range owners {
		_, _ = fmt.Fprintf(w, "    %s.%s%s\n", o.Table, o.Property, via(o.AssociatedField))
	}
}

// Owner is a parent entity property whose children live in another table
type Owner struct {
	Table           string
	Property        string
	AssociatedField string
}

// findOwners finds all class properties pointing to this table
func findOwners(table string, entities []schema.Entity) []Owner {
	var owners []Owner

	for _, entity := range entities {
		for _, p := range entity.Properties {
			if p.Children == table {
				owners = append(owners, Owner{
					Table:           entity.Table,
					Property:        p.Name,
					AssociatedField: p.AssociatedField,
				})
			}
		}
	}

	return owners
}

func childTables(entity schema.Entity) []string {
	var targets []string
	for _, p := range entity.Properties {
		if p.Children != "" {
			targets = append(targets, p.Children)
		}
	}
	return targets
}

func sortedByTable(entities []schema.Entity) []schema.Entity {
	sorted := make([]schema.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Table < sorted[j].Table
	})
	return sorted
}

func via(field string) string {
	if field == "" {
		return ""
	}
	return " (via " + field + ")"
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
