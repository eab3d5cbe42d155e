// Package relation holds named tables of string rows and the projection and
// row-union operations the decomposition steps are built from.
package relation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tordrt/fdnorm/internal/fd"
)

// Table is a named relation. Columns keep their source order; Rows may be
// empty when only the schema is known.
type Table struct {
	Name    string         `json:"name"`
	Columns []fd.Attribute `json:"columns"`
	Rows    [][]string     `json:"rows,omitempty"`
}

// New builds a table, normalizing column names. It fails on duplicate
// columns or rows whose width differs from the header.
func New(name string, columns []string, rows [][]string) (*Table, error) {
	cols := make([]fd.Attribute, len(columns))
	seen := make(map[fd.Attribute]bool, len(columns))
	for i, c := range columns {
		a := fd.NormalizeAttribute(c)
		if a == "" {
			return nil, fmt.Errorf("table %s: column %d has an empty name", name, i+1)
		}
		if seen[a] {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, a)
		}
		seen[a] = true
		cols[i] = a
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("table %s: row %d has %d values, want %d", name, i+1, len(r), len(cols))
		}
	}
	return &Table{Name: name, Columns: cols, Rows: rows}, nil
}

// FromAttrs builds an empty table whose columns are attrs in sorted order.
func FromAttrs(name string, attrs fd.AttrSet) *Table {
	return &Table{Name: name, Columns: slices.Clone([]fd.Attribute(attrs))}
}

// Attrs returns the table's columns as a set.
func (t *Table) Attrs() fd.AttrSet {
	return fd.NewAttrSet(t.Columns...)
}

// Project returns a table over attrs (columns in sorted order) holding the
// distinct projected rows. It is the single place attribute selection is
// checked: any attribute absent from t yields an fd.ErrSchemaMismatch.
func (t *Table) Project(name string, attrs fd.AttrSet) (*Table, error) {
	if err := fd.RequireSubset("project "+t.Name+" onto "+name, attrs, t.Attrs()); err != nil {
		return nil, err
	}
	pos := make(map[fd.Attribute]int, len(t.Columns))
	for i, c := range t.Columns {
		pos[c] = i
	}

	out := FromAttrs(name, attrs)
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		row := make([]string, len(attrs))
		for i, a := range attrs {
			row[i] = r[pos[a]]
		}
		k := rowKey(row)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Union returns the distinct rows of t followed by the distinct rows of o not
// already present. Both tables must have the same attribute set; o's columns
// are reordered to t's order.
func (t *Table) Union(o *Table) (*Table, error) {
	if !t.Attrs().Equal(o.Attrs()) {
		return nil, &fd.MismatchError{
			Op:      "union " + t.Name + " with " + o.Name,
			Missing: t.Attrs().Minus(o.Attrs()).Union(o.Attrs().Minus(t.Attrs())),
		}
	}
	aligned, err := o.Project(t.Name, t.Attrs())
	if err != nil {
		return nil, err
	}
	self, err := t.Project(t.Name, t.Attrs())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(self.Rows))
	for _, r := range self.Rows {
		seen[rowKey(r)] = true
	}
	for _, r := range aligned.Rows {
		if k := rowKey(r); !seen[k] {
			seen[k] = true
			self.Rows = append(self.Rows, r)
		}
	}
	return self, nil
}

// Clone returns a deep copy of t under a new name.
func (t *Table) Clone(name string) *Table {
	out := &Table{Name: name, Columns: slices.Clone(t.Columns)}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, slices.Clone(r))
	}
	return out
}

// ColumnNames returns the columns as plain strings.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = string(c)
	}
	return out
}

func rowKey(row []string) string {
	return strings.Join(row, "\x1f")
}
