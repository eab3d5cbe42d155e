// Package synth decomposes a relation into normalized relations, either by
// 3NF synthesis from a minimal cover or by splitting off partial and
// transitive dependencies.
package synth

import (
	"fmt"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/keys"
	"github.com/tordrt/fdnorm/internal/relation"
)

// Form selects the decomposition strategy.
type Form string

const (
	// FormSynthesis is lossless, dependency-preserving 3NF synthesis.
	FormSynthesis Form = "3nf"
	// Form2NF splits off partial dependencies only.
	Form2NF Form = "2nf"
	// Form3NFClassify splits off partial and transitive dependencies.
	Form3NFClassify Form = "3nf-classify"
)

// DefaultNamePrefix names output relations 3NF_table1, 3NF_table2, ...
const DefaultNamePrefix = "3NF_table"

// Options configures Decompose.
type Options struct {
	Form       Form
	NamePrefix string
	// KeyBound caps key enumeration inside the classification path.
	KeyBound int
}

// Decompose runs the strategy selected by opts.Form. cover must be a minimal
// cover over src's attributes and candidateKeys the candidate keys of src.
func Decompose(src *relation.Table, cover fd.Set, candidateKeys []fd.AttrSet, opts Options) ([]*relation.Table, error) {
	switch opts.Form {
	case FormSynthesis, "":
		return Synthesize(src, cover, candidateKeys, opts.NamePrefix)
	case Form2NF, Form3NFClassify:
		return Split(src, cover, opts)
	default:
		return nil, fmt.Errorf("unknown normal form %q", opts.Form)
	}
}

// Synthesize builds one relation per LHS group of cover, adds a key relation
// when no group holds a whole candidate key, drops relations contained in
// another, and merges relations with identical attributes by row-union.
func Synthesize(src *relation.Table, cover fd.Set, candidateKeys []fd.AttrSet, prefix string) ([]*relation.Table, error) {
	var out []*relation.Table
	for i, g := range cover.GroupByLHS() {
		t, err := src.Project(fmt.Sprintf("group%d", i+1), g.Attrs())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if len(candidateKeys) > 0 && !holdsKey(out, candidateKeys) {
		t, err := src.Project("key", keys.Primary(candidateKeys))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	// Without dependencies the relation is its own decomposition.
	if len(out) == 0 {
		out = append(out, src.Clone("source"))
	}

	return tidy(out, prefix)
}

func holdsKey(tables []*relation.Table, candidateKeys []fd.AttrSet) bool {
	for _, t := range tables {
		attrs := t.Attrs()
		for _, k := range candidateKeys {
			if k.SubsetOf(attrs) {
				return true
			}
		}
	}
	return false
}

// tidy drops relations whose attributes are a proper subset of another's,
// merges relations with equal attribute sets, and names the survivors.
func tidy(tables []*relation.Table, prefix string) ([]*relation.Table, error) {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}

	var kept []*relation.Table
	for i, t := range tables {
		attrs := t.Attrs()
		contained := false
		for j, o := range tables {
			if i != j && attrs.ProperSubsetOf(o.Attrs()) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, t)
		}
	}

	var merged []*relation.Table
	index := make(map[string]int)
	for _, t := range kept {
		k := t.Attrs().Key()
		if i, ok := index[k]; ok {
			u, err := merged[i].Union(t)
			if err != nil {
				return nil, err
			}
			merged[i] = u
			continue
		}
		index[k] = len(merged)
		merged = append(merged, t)
	}

	for i, t := range merged {
		merged[i] = t.Clone(fmt.Sprintf("%s%d", prefix, i+1))
	}
	return merged, nil
}
