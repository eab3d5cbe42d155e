package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tordrt/fdnorm/internal/pipeline"
)

// TableFormatter renders an analysis as terminal tables.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Format writes a relations table followed by a verification table
func (f *TableFormatter) Format(r *pipeline.Result) error {
	if r.Schema == nil {
		return fmt.Errorf("analysis of %s has no decomposition", r.Source.Name)
	}

	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Decomposition of " + r.Source.Name)
	t.AppendHeader(table.Row{"Table", "Attributes", "Primary key", "Candidate keys", "References", "Rows"})
	for _, tbl := range r.Schema.Tables {
		keys := make([]string, len(tbl.CandidateKeys))
		for i, k := range tbl.CandidateKeys {
			keys[i] = "{" + strings.Join(k, ", ") + "}"
		}
		refs := make([]string, len(tbl.Relations))
		for i, rel := range tbl.Relations {
			refs[i] = fmt.Sprintf("%s → %s.%s", rel.SourceColumn, rel.TargetTable, rel.TargetColumn)
		}
		t.AppendRow(table.Row{
			tbl.Name,
			strings.Join(tbl.ColumnNames(), ", "),
			strings.Join(tbl.PrimaryKey, ", "),
			strings.Join(keys, " "),
			strings.Join(refs, "\n"),
			len(tbl.Rows),
		})
	}
	t.Render()

	v := table.NewWriter()
	v.SetOutputMirror(f.writer)
	v.SetStyle(table.StyleLight)
	v.AppendHeader(table.Row{"Check", "Result"})
	if !r.Verification.Evaluated() {
		v.AppendRow(table.Row{"verification", "cannot evaluate: " + r.Verification.CannotEvaluate})
	} else {
		v.AppendRow(table.Row{"lossless join", yesNo(r.Verification.Lossless)})
		v.AppendRow(table.Row{"dependency preserving", yesNo(r.Verification.Preserved)})
		if len(r.Verification.Lost) > 0 {
			v.AppendRow(table.Row{"lost dependencies", strings.Join(r.Verification.Lost.Strings(), "\n")})
		}
	}
	v.Render()
	return nil
}
