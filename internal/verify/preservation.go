package verify

import (
	"github.com/tordrt/fdnorm/internal/fd"
)

// Preserved reports whether every dependency of original is implied by the
// dependencies visible inside the decomposition.
func Preserved(original fd.Set, schemas []fd.AttrSet) (bool, error) {
	c, err := newChecker(original, schemas)
	if err != nil {
		return false, err
	}
	for _, d := range original {
		if !c.implied(d) {
			return false, nil
		}
	}
	return true, nil
}

// LostDependencies returns the minimal-cover dependencies of original that
// the decomposition does not preserve.
func LostDependencies(original fd.Set, schemas []fd.AttrSet) (fd.Set, error) {
	c, err := newChecker(original, schemas)
	if err != nil {
		return nil, err
	}
	var lost fd.Set
	for _, d := range c.cover {
		if !c.implied(d) {
			lost = append(lost, d)
		}
	}
	return lost, nil
}

type checker struct {
	schemas   []fd.AttrSet
	cover     fd.Set
	projected fd.Set
}

func newChecker(original fd.Set, schemas []fd.AttrSet) (*checker, error) {
	var universe fd.AttrSet
	for _, s := range schemas {
		universe = universe.Union(s)
	}
	if err := checkInputs("dependency preservation", universe, schemas, original); err != nil {
		return nil, err
	}

	cover := fd.MinimalCover(original)
	var projected fd.Set
	for _, s := range schemas {
		projected = append(projected, cover.Project(s)...)
	}
	return &checker{
		schemas:   schemas,
		cover:     cover,
		projected: fd.MinimalCover(projected),
	}, nil
}

// implied first tests d against the union of the per-schema projections.
// Projection by containment misses dependencies that hold in a schema only
// through attributes outside it, so a failure falls back to the cross-schema
// closure.
func (c *checker) implied(d fd.Dependency) bool {
	if c.projected.Implies(d) {
		return true
	}
	return d.RHS.SubsetOf(CrossSchemaClosure(d.LHS, c.schemas, c.cover))
}

// CrossSchemaClosure grows x by visiting every schema that intersects it and
// adding the part of closure(x ∩ schema) that lies inside that schema, until
// no schema contributes anything.
//
// The per-schema closure runs under the full dependency set and is then cut
// back to the schema, which computes exactly what the projection of deps
// onto that schema derives. Restricting the closure to dependencies wholly
// inside the schema instead would only repeat the projected test. The result
// only grows and is bounded by the union of schemas, so at most that many
// rounds run.
func CrossSchemaClosure(x fd.AttrSet, schemas []fd.AttrSet, deps fd.Set) fd.AttrSet {
	result := x
	for changed := true; changed; {
		changed = false
		for _, s := range schemas {
			local := result.Intersect(s)
			if local.IsEmpty() {
				continue
			}
			gained := fd.Closure(local, deps).Intersect(s)
			if !gained.SubsetOf(result) {
				result = result.Union(gained)
				changed = true
			}
		}
	}
	return result
}
