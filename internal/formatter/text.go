package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/schema"
)

// TextFormatter formats an analysis as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the analysis in compact text format
func (f *TextFormatter) Format(r *pipeline.Result) error {
	w := f.writer
	_, _ = fmt.Fprintf(w, "RELATION %s (%s)\n", r.Source.Name, strings.Join(r.Source.ColumnNames(), ", "))

	f.section("DEPENDENCIES", r.Dependencies.Strings())
	f.section("MINIMAL COVER", r.Cover.Strings())

	closures := make([]string, len(r.Closures))
	for i, c := range r.Closures {
		closures[i] = fmt.Sprintf("%s+ = %s", c.Attrs, c.Closure)
	}
	f.section("CLOSURES", closures)

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "KEYS")
	if !r.Keys.Found() {
		_, _ = fmt.Fprintln(w, "  no candidate key within bound")
	} else {
		_, _ = fmt.Fprintf(w, "  candidate: %s\n", joinSets(r.Keys.CandidateKeys))
		_, _ = fmt.Fprintf(w, "  primary: %s\n", r.Keys.PrimaryKey)
		_, _ = fmt.Fprintf(w, "  superkeys: %d\n", len(r.Keys.SuperKeys))
	}

	violations := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		violations[i] = fmt.Sprintf("%s (%s)", v.Dependency, v.Kind)
	}
	f.section("VIOLATIONS", violations)

	if r.Schema != nil {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "DECOMPOSITION (%d)\n", len(r.Schema.Tables))
		for _, table := range r.Schema.Tables {
			_, _ = fmt.Fprintln(w)
			f.formatTable(table)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "VERIFICATION")
	for _, line := range verificationLines(r.Verification) {
		_, _ = fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

func (f *TextFormatter) section(title string, lines []string) {
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, title)
	if len(lines) == 0 {
		_, _ = fmt.Fprintln(f.writer, "  (none)")
		return
	}
	for _, l := range lines {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", l)
	}
}

func (f *TextFormatter) formatTable(table schema.Table) {
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s, %s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality, rel.Rule)
		}
	}
	_, _ = fmt.Fprintf(f.writer, "  ROWS: %d\n", len(table.Rows))
}

func (f *TextFormatter) formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", col.Type}
	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if col.Prime {
		parts = append(parts, "PRIME")
	}
	return strings.Join(parts, " ")
}
