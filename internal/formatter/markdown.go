package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/schema"
)

// MarkdownFormatter formats an analysis as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the analysis in markdown format
func (f *MarkdownFormatter) Format(r *pipeline.Result) error {
	_, _ = fmt.Fprintf(f.writer, "# Normalization of %s\n\n", r.Source.Name)
	f.formatSummary(r)

	if r.Schema != nil {
		for _, table := range r.Schema.Tables {
			f.formatTable(table)
		}
	}
	return nil
}

func (f *MarkdownFormatter) formatSummary(r *pipeline.Result) {
	w := f.writer
	_, _ = fmt.Fprintf(w, "Attributes: %s\n\n", code(r.Source.ColumnNames()))

	_, _ = fmt.Fprintln(w, "## Minimal cover")
	_, _ = fmt.Fprintln(w)
	if len(r.Cover) == 0 {
		_, _ = fmt.Fprintln(w, "_No dependencies._")
	}
	for _, d := range r.Cover {
		_, _ = fmt.Fprintf(w, "- `%s`\n", d)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "## Keys")
	_, _ = fmt.Fprintln(w)
	if r.Keys.Found() {
		_, _ = fmt.Fprintf(w, "- **Candidate keys:** %s\n", joinSets(r.Keys.CandidateKeys))
		_, _ = fmt.Fprintf(w, "- **Primary key:** %s\n", r.Keys.PrimaryKey)
		_, _ = fmt.Fprintf(w, "- **Superkeys:** %d\n", len(r.Keys.SuperKeys))
	} else {
		_, _ = fmt.Fprintln(w, "_No candidate key within the key bound._")
	}
	_, _ = fmt.Fprintln(w)

	if len(r.Violations) > 0 {
		_, _ = fmt.Fprintln(w, "## Violations")
		_, _ = fmt.Fprintln(w)
		for _, v := range r.Violations {
			_, _ = fmt.Fprintf(w, "- `%s` (%s)\n", v.Dependency, v.Kind)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, "## Verification")
	_, _ = fmt.Fprintln(w)
	for _, line := range verificationLines(r.Verification) {
		_, _ = fmt.Fprintf(w, "- %s\n", line)
	}
	_, _ = fmt.Fprintln(w)
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(table schema.Table) {
	f.formatTable(table)
}

func (f *MarkdownFormatter) formatTable(table schema.Table) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		constraintStr := f.formatConstraints(col, &table)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, col.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, col.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(table.CandidateKeys) > 1 {
		_, _ = fmt.Fprintln(f.writer, "### Candidate keys")
		_, _ = fmt.Fprintln(f.writer)
		for _, k := range table.CandidateKeys {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", code(k))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s, matched by %s)\n",
				rel.SourceColumn,
				rel.TargetTable,
				rel.TargetColumn,
				rel.Cardinality,
				rel.Rule)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatConstraints(col schema.Column, table *schema.Table) string {
	var constraints []string
	if table.IsPrimary(col.Name) {
		constraints = append(constraints, "PK")
	}
	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if _, ok := table.Reference(col.Name); ok {
		constraints = append(constraints, "FK")
	}
	return strings.Join(constraints, ", ")
}

func code(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
