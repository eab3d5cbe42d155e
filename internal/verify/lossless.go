// Package verify checks a decomposition for the lossless-join and
// dependency-preservation properties.
package verify

import (
	"fmt"
	"strings"

	"github.com/tordrt/fdnorm/internal/fd"
)

// Tableau is the chase state: one row per decomposed schema, one column per
// attribute of the original relation. Symbol 0 is the shared (distinguished)
// symbol of a column; positive symbols are private.
type Tableau struct {
	Attrs   fd.AttrSet
	Schemas []fd.AttrSet
	Rows    [][]int
}

// NewTableau builds the initial tableau: row i carries the shared symbol in
// the columns of schemas[i] and a private symbol everywhere else.
func NewTableau(universe fd.AttrSet, schemas []fd.AttrSet) *Tableau {
	t := &Tableau{Attrs: universe, Schemas: schemas, Rows: make([][]int, len(schemas))}
	next := 1
	for i, s := range schemas {
		row := make([]int, len(universe))
		for j, a := range universe {
			if !s.Contains(a) {
				row[j] = next
				next++
			}
		}
		t.Rows[i] = row
	}
	return t
}

// Chase applies deps until a full pass changes nothing.
//
// For each dependency, rows that agree on every LHS column are made to agree
// on every RHS column. Within a column, equated symbols collapse to the
// shared symbol if any of them is shared, otherwise to the smallest private
// one, and the collapse is applied to the whole column. Every change removes
// at least one distinct symbol from a column, so the chase terminates.
func (t *Tableau) Chase(deps fd.Set) {
	col := make(map[fd.Attribute]int, len(t.Attrs))
	for j, a := range t.Attrs {
		col[a] = j
	}

	for changed := true; changed; {
		changed = false
		for _, d := range deps {
			groups := make(map[string][]int)
			var order []string
			for i, row := range t.Rows {
				var b strings.Builder
				for _, a := range d.LHS {
					fmt.Fprintf(&b, "%d,", row[col[a]])
				}
				k := b.String()
				if _, ok := groups[k]; !ok {
					order = append(order, k)
				}
				groups[k] = append(groups[k], i)
			}

			for _, k := range order {
				rows := groups[k]
				if len(rows) < 2 {
					continue
				}
				for _, a := range d.RHS {
					if t.equate(col[a], rows) {
						changed = true
					}
				}
			}
		}
	}
}

func (t *Tableau) equate(j int, rows []int) bool {
	target := t.Rows[rows[0]][j]
	for _, i := range rows[1:] {
		target = min(target, t.Rows[i][j])
	}

	changed := false
	for _, i := range rows {
		old := t.Rows[i][j]
		if old == target {
			continue
		}
		for _, row := range t.Rows {
			if row[j] == old {
				row[j] = target
			}
		}
		changed = true
	}
	return changed
}

// Witness returns the index of the first row made entirely of shared
// symbols, or -1.
func (t *Tableau) Witness() int {
	for i, row := range t.Rows {
		all := true
		for _, v := range row {
			if v != 0 {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

// Strings renders the tableau with a<column> for shared symbols and
// b<symbol> for private ones.
func (t *Tableau) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == 0 {
				cells[j] = fmt.Sprintf("a%d", j+1)
			} else {
				cells[j] = fmt.Sprintf("b%d", v)
			}
		}
		out[i] = cells
	}
	return out
}

// LosslessResult reports the outcome of the chase.
type LosslessResult struct {
	Lossless bool `json:"lossless"`
	// Witness is the index of the schema whose row became all shared, or -1.
	Witness int        `json:"witness"`
	Tableau [][]string `json:"tableau"`
}

// Lossless decides whether joining schemas reconstructs universe under deps.
// Empty inputs are a precondition violation (fd.ErrPrecondition); schemas or
// dependencies that reference attributes outside universe are a schema
// mismatch (fd.ErrSchemaMismatch).
func Lossless(universe fd.AttrSet, schemas []fd.AttrSet, deps fd.Set) (LosslessResult, error) {
	if err := checkInputs("lossless join", universe, schemas, deps); err != nil {
		return LosslessResult{Witness: -1}, err
	}
	if err := deps.Validate(universe); err != nil {
		return LosslessResult{Witness: -1}, err
	}

	t := NewTableau(universe, schemas)
	t.Chase(deps)
	w := t.Witness()
	return LosslessResult{Lossless: w >= 0, Witness: w, Tableau: t.Strings()}, nil
}

// IsLossless is Lossless reduced to its verdict.
func IsLossless(universe fd.AttrSet, schemas []fd.AttrSet, deps fd.Set) (bool, error) {
	res, err := Lossless(universe, schemas, deps)
	return res.Lossless, err
}

func checkInputs(op string, universe fd.AttrSet, schemas []fd.AttrSet, deps fd.Set) error {
	switch {
	case universe.IsEmpty():
		return &fd.PreconditionError{Op: op, Reason: "no attributes"}
	case len(schemas) == 0:
		return &fd.PreconditionError{Op: op, Reason: "no decomposed schemas"}
	case len(deps) == 0:
		return &fd.PreconditionError{Op: op, Reason: "no functional dependencies"}
	}
	for i, s := range schemas {
		if s.IsEmpty() {
			return &fd.PreconditionError{Op: op, Reason: fmt.Sprintf("schema %d is empty", i+1)}
		}
		if err := fd.RequireSubset(fmt.Sprintf("%s: schema %d", op, i+1), s, universe); err != nil {
			return err
		}
	}
	return nil
}
