// Package formatter renders analysis results as text, markdown, JSON keymaps,
// terminal tables, or a directory with one file per decomposed table.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/schema"
)

// Output format names.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatTable    = "table"
)

// Formatter renders one analysis.
type Formatter interface {
	Format(r *pipeline.Result) error
}

// New returns the single-stream formatter for format.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatTable:
		return NewTableFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// IncomingRelation represents a relationship pointing to a table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetColumn string
	Cardinality  string
}

// findIncomingRelations finds all foreign keys pointing to tableName
func findIncomingRelations(tableName string, s *schema.Schema) []IncomingRelation {
	var incoming []IncomingRelation
	for _, table := range s.Tables {
		for _, rel := range table.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  table.Name,
					SourceColumn: rel.SourceColumn,
					TargetColumn: rel.TargetColumn,
					Cardinality:  rel.Cardinality,
				})
			}
		}
	}
	return incoming
}

func joinSets(sets []fd.AttrSet) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func verificationLines(v pipeline.Verification) []string {
	if !v.Evaluated() {
		return []string{"cannot evaluate: " + v.CannotEvaluate}
	}
	lossless := yesNo(v.Lossless)
	if v.Lossless {
		lossless += fmt.Sprintf(" (row %d of the tableau)", v.Witness+1)
	}
	lines := []string{
		"lossless join: " + lossless,
		"dependency preserving: " + yesNo(v.Preserved),
	}
	if len(v.Lost) > 0 {
		lines = append(lines, "lost: "+strings.Join(v.Lost.Strings(), "; "))
	}
	return lines
}
