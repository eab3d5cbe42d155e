package synth

import (
	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/keys"
	"github.com/tordrt/fdnorm/internal/relation"
)

// Kind names a normal-form violation.
type Kind string

const (
	// Partial marks an LHS that is a proper subset of a candidate key (2NF).
	Partial Kind = "partial"
	// Transitive marks a non-superkey LHS determining a non-prime attribute (3NF).
	Transitive Kind = "transitive"
)

// Violation is a dependency that breaks 2NF or 3NF in a schema.
type Violation struct {
	Dependency fd.Dependency `json:"dependency"`
	Kind       Kind          `json:"kind"`
}

// IsPartial reports whether d's LHS is a proper subset of some candidate key.
func IsPartial(d fd.Dependency, candidateKeys []fd.AttrSet) bool {
	for _, k := range candidateKeys {
		if d.LHS.ProperSubsetOf(k) {
			return true
		}
	}
	return false
}

// IsTransitive reports whether d's LHS is not a superkey of schema and its
// RHS holds an attribute outside prime.
func IsTransitive(d fd.Dependency, schema fd.AttrSet, deps fd.Set, prime fd.AttrSet) bool {
	if fd.IsSuperkey(d.LHS, schema, deps) {
		return false
	}
	return !d.RHS.Minus(prime).IsEmpty()
}

// Classify lists the violations of the dependencies in deps that lie inside
// schema. A dependency that is both partial and transitive is reported once,
// as partial.
func Classify(schema fd.AttrSet, deps fd.Set, candidateKeys []fd.AttrSet) []Violation {
	local := deps.Project(schema)
	var prime fd.AttrSet
	for _, k := range candidateKeys {
		prime = prime.Union(k)
	}

	var out []Violation
	for _, d := range local {
		switch {
		case IsPartial(d, candidateKeys):
			out = append(out, Violation{Dependency: d, Kind: Partial})
		case IsTransitive(d, schema, local, prime):
			out = append(out, Violation{Dependency: d, Kind: Transitive})
		}
	}
	return out
}

// Split repeatedly spins off a violating dependency's LHS together with
// everything it determines, keeping the rest in the base relation, until no
// relation has a violation of the selected form. The two halves share the
// violating LHS, which determines the spun-off half, so every split is
// lossless.
func Split(src *relation.Table, cover fd.Set, opts Options) ([]*relation.Table, error) {
	base, err := src.Project("source", src.Attrs())
	if err != nil {
		return nil, err
	}
	out, err := split(base, cover, opts)
	if err != nil {
		return nil, err
	}
	prefix := opts.NamePrefix
	if prefix == "" && opts.Form == Form2NF {
		prefix = "2NF_table"
	}
	return tidy(out, prefix)
}

func split(t *relation.Table, cover fd.Set, opts Options) ([]*relation.Table, error) {
	schema := t.Attrs()
	local := cover.Project(schema)
	candidates := keys.Candidates(schema, local, opts.KeyBound)

	var violations []Violation
	for _, v := range Classify(schema, local, candidates) {
		if opts.Form == Form2NF && v.Kind != Partial {
			continue
		}
		violations = append(violations, v)
	}
	if len(violations) == 0 {
		return []*relation.Table{t}, nil
	}

	// Everything the violating LHS determines leaves with it. Moving only
	// the RHS would strand attributes that depend on it in the base.
	lhs := violations[0].Dependency.LHS
	moved := fd.Closure(lhs, local).Intersect(schema).Minus(lhs)

	rest, err := t.Project(t.Name, schema.Minus(moved))
	if err != nil {
		return nil, err
	}
	spun, err := t.Project(t.Name, lhs.Union(moved))
	if err != nil {
		return nil, err
	}

	left, err := split(rest, cover, opts)
	if err != nil {
		return nil, err
	}
	right, err := split(spun, cover, opts)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
