package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/relation"
	"github.com/tordrt/fdnorm/internal/schema"
)

// MultiFileFormatter writes an analysis to a directory: an overview, one
// description per decomposed table, one CSV per table that has rows, and the
// keymap as keymap.json.
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

// Format writes the analysis to multiple files
func (f *MultiFileFormatter) Format(r *pipeline.Result) error {
	if r.Schema == nil {
		return fmt.Errorf("analysis of %s has no decomposition", r.Source.Name)
	}
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview"+f.getFileExtension(), func(w io.Writer) error {
		return f.writeOverview(w, r)
	}); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for i := range r.Schema.Tables {
		table := &r.Schema.Tables[i]
		if err := f.writeFile(table.Name+f.getFileExtension(), func(w io.Writer) error {
			return f.writeTable(w, table, r.Schema)
		}); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
		if len(table.Rows) > 0 {
			if err := f.writeFile(table.Name+".csv", func(w io.Writer) error {
				return writeRows(w, table)
			}); err != nil {
				return fmt.Errorf("failed to write rows for %s: %w", table.Name, err)
			}
		}
	}

	if err := f.writeFile("keymap.json", r.Schema.KeyMap().Write); err != nil {
		return fmt.Errorf("failed to write keymap: %w", err)
	}
	return nil
}

func (f *MultiFileFormatter) writeFile(name string, fn func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name))
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, r *pipeline.Result) error {
	sortedTables := make([]schema.Table, len(r.Schema.Tables))
	copy(sortedTables, r.Schema.Tables)
	sort.Slice(sortedTables, func(i, j int) bool {
		return sortedTables[i].Name < sortedTables[j].Name
	})

	if f.OutputFormat == FormatMarkdown {
		md := NewMarkdownFormatter(w)
		_, _ = fmt.Fprintf(w, "# Normalization of %s\n\n", r.Source.Name)
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		md.formatSummary(r)
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
		for _, table := range sortedTables {
			_, _ = fmt.Fprintf(w, "- **%s**", table.Name)
			if targets := referenceTargets(table); len(targets) > 0 {
				_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
			}
			_, _ = fmt.Fprintln(w)
		}
		return nil
	}

	_, _ = fmt.Fprintf(w, "NORMALIZATION OF %s\n", r.Source.Name)
	_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	for _, table := range sortedTables {
		_, _ = fmt.Fprint(w, table.Name)
		if targets := referenceTargets(table); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ","))
		}
		_, _ = fmt.Fprintln(w)
	}
	_, _ = fmt.Fprintln(w)
	for _, line := range verificationLines(r.Verification) {
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

func (f *MultiFileFormatter) writeTable(w io.Writer, table *schema.Table, s *schema.Schema) error {
	incomingRels := findIncomingRelations(table.Name, s)

	if f.OutputFormat == FormatMarkdown {
		NewMarkdownFormatter(w).FormatTable(*table)
		if len(incomingRels) > 0 {
			_, _ = fmt.Fprintf(w, "### Referenced by\n\n")
			for _, rel := range incomingRels {
				_, _ = fmt.Fprintf(w, "- %s.%s → %s (%s)\n",
					rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rel.Cardinality)
			}
			_, _ = fmt.Fprintln(w)
		}
		return nil
	}

	NewTextFormatter(w).formatTable(*table)
	if len(incomingRels) > 0 {
		_, _ = fmt.Fprintln(w, "  REFERENCED BY:")
		for _, rel := range incomingRels {
			_, _ = fmt.Fprintf(w, "    %s.%s → %s\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn)
		}
	}
	return nil
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}

func referenceTargets(table schema.Table) []string {
	var targets []string
	for _, rel := range table.Relations {
		targets = append(targets, rel.TargetTable)
	}
	return targets
}

func writeRows(w io.Writer, table *schema.Table) error {
	t, err := relation.New(table.Name, table.ColumnNames(), table.Rows)
	if err != nil {
		return err
	}
	return relation.WriteCSV(w, t)
}
