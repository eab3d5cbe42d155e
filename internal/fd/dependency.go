package fd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Dependency is a functional dependency LHS → RHS.
type Dependency struct {
	LHS AttrSet `json:"lhs"`
	RHS AttrSet `json:"rhs"`
}

// NewDependency builds a dependency from attribute names, normalizing them.
func NewDependency(lhs, rhs []string) Dependency {
	return Dependency{LHS: ParseAttrSet(lhs...), RHS: ParseAttrSet(rhs...)}
}

// Parse reads a dependency written as "a, b -> c". The arrow may also be "→".
func Parse(text string) (Dependency, error) {
	text = strings.ReplaceAll(text, "→", "->")
	lhs, rhs, ok := strings.Cut(text, "->")
	if !ok {
		return Dependency{}, fmt.Errorf("invalid dependency %q: missing \"->\"", text)
	}
	d := NewDependency(strings.Split(lhs, ","), strings.Split(rhs, ","))
	if d.LHS.IsEmpty() || d.RHS.IsEmpty() {
		return Dependency{}, fmt.Errorf("invalid dependency %q: both sides need at least one attribute", text)
	}
	return d, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and literals.
func MustParse(text string) Dependency {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// Attrs returns LHS ∪ RHS.
func (d Dependency) Attrs() AttrSet { return d.LHS.Union(d.RHS) }

// IsTrivial reports whether RHS ⊆ LHS.
func (d Dependency) IsTrivial() bool { return d.RHS.SubsetOf(d.LHS) }

// Equal reports whether both sides match.
func (d Dependency) Equal(o Dependency) bool {
	return d.LHS.Equal(o.LHS) && d.RHS.Equal(o.RHS)
}

func (d Dependency) String() string {
	return strings.Join(d.LHS.Strings(), ", ") + " -> " + strings.Join(d.RHS.Strings(), ", ")
}

// Set is an ordered collection of dependencies. Sets are treated as immutable:
// every operation returns a new Set.
type Set []Dependency

// ParseSet parses one dependency per entry.
func ParseSet(texts ...string) (Set, error) {
	out := make(Set, 0, len(texts))
	for _, t := range texts {
		d, err := Parse(t)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// MustParseSet is like ParseSet but panics on malformed input.
func MustParseSet(texts ...string) Set {
	s, err := ParseSet(texts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Attributes returns every attribute mentioned by the set.
func (s Set) Attributes() AttrSet {
	var out AttrSet
	for _, d := range s {
		out = out.Union(d.Attrs())
	}
	return out
}

// Validate checks that every dependency has non-empty sides and only
// references attributes of universe.
func (s Set) Validate(universe AttrSet) error {
	for _, d := range s {
		if d.LHS.IsEmpty() || d.RHS.IsEmpty() {
			return fmt.Errorf("dependency %q: both sides need at least one attribute", d)
		}
		if err := RequireSubset("dependency "+d.String(), d.Attrs(), universe); err != nil {
			return err
		}
	}
	return nil
}

// Project keeps the dependencies whose LHS ∪ RHS lies wholly inside schema.
// This is a conservative projection: dependencies implied only through
// attributes outside schema are not derived.
func (s Set) Project(schema AttrSet) Set {
	var out Set
	for _, d := range s {
		if d.Attrs().SubsetOf(schema) {
			out = append(out, d)
		}
	}
	return out
}

// Singletons splits every dependency into one dependency per RHS attribute.
func (s Set) Singletons() Set {
	var out Set
	for _, d := range s {
		for _, a := range d.RHS {
			out = append(out, Dependency{LHS: d.LHS, RHS: AttrSet{a}})
		}
	}
	return out
}

// Implies reports whether d follows from s.
func (s Set) Implies(d Dependency) bool {
	return d.RHS.SubsetOf(Closure(d.LHS, s))
}

// Covers reports whether every dependency of o follows from s.
func (s Set) Covers(o Set) bool {
	for _, d := range o {
		if !s.Implies(d) {
			return false
		}
	}
	return true
}

// Equivalent reports whether s and o imply each other.
func (s Set) Equivalent(o Set) bool {
	return s.Covers(o) && o.Covers(s)
}

// Without returns s without the dependency at index i.
func (s Set) Without(i int) Set {
	out := make(Set, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// Group is the RHS union of every dependency that shares an LHS.
type Group struct {
	LHS AttrSet
	RHS AttrSet
}

// Attrs returns LHS ∪ RHS.
func (g Group) Attrs() AttrSet { return g.LHS.Union(g.RHS) }

// GroupByLHS merges dependencies with equal LHS, in order of first appearance.
func (s Set) GroupByLHS() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, d := range s {
		k := d.LHS.Key()
		if i, ok := index[k]; ok {
			groups[i].RHS = groups[i].RHS.Union(d.RHS)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, Group{LHS: d.LHS, RHS: d.RHS})
	}
	return groups
}

// Sorted returns a copy ordered by LHS then RHS.
func (s Set) Sorted() Set {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b Dependency) int {
		if c := a.LHS.Compare(b.LHS); c != 0 {
			return c
		}
		return a.RHS.Compare(b.RHS)
	})
	return out
}

// Strings renders each dependency.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.String()
	}
	return out
}

// MarshalJSON encodes an empty set as [] rather than null.
func (s Set) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Dependency(s))
}
