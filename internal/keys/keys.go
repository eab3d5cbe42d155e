// Package keys enumerates candidate keys, the primary key and superkeys of a
// relation schema under a set of functional dependencies.
//
// Enumeration is exhaustive up to a caller-chosen size bound. A schema whose
// smallest key is wider than the bound yields an empty result, which means
// "not found", never "keyless".
package keys

import (
	"github.com/tordrt/fdnorm/internal/fd"
)

// Result holds the keys found for one schema. Candidate keys and superkeys
// are ordered by size, then lexicographically.
type Result struct {
	CandidateKeys []fd.AttrSet `json:"candidate_keys"`
	PrimaryKey    fd.AttrSet   `json:"primary_key"`
	SuperKeys     []fd.AttrSet `json:"superkeys"`
}

// Found reports whether at least one candidate key was found within the bound.
func (r Result) Found() bool { return len(r.CandidateKeys) > 0 }

// Prime returns the union of all candidate keys.
func (r Result) Prime() fd.AttrSet {
	var out fd.AttrSet
	for _, k := range r.CandidateKeys {
		out = out.Union(k)
	}
	return out
}

// Enumerate finds keys of schema under deps, trying subsets of size 1 up to
// bound. A bound <= 0 or larger than the schema means the schema size.
//
// An attribute of schema that no dependency derives belongs to every
// superkey, so only subsets holding all of them are tried. Subsets are
// generated in increasing size, so a closure-complete subset is a candidate
// key exactly when no key recorded so far is contained in it.
func Enumerate(schema fd.AttrSet, deps fd.Set, bound int) Result {
	n := schema.Len()
	if bound <= 0 || bound > n {
		bound = n
	}

	core := Core(schema, deps)
	rest := schema.Minus(core)

	var res Result
	try := func(subset fd.AttrSet) {
		if containsKey(res.CandidateKeys, subset) {
			res.SuperKeys = append(res.SuperKeys, subset)
			return
		}
		if !fd.IsSuperkey(subset, schema, deps) {
			return
		}
		res.CandidateKeys = append(res.CandidateKeys, subset)
		res.SuperKeys = append(res.SuperKeys, subset)
	}

	for size := max(1, core.Len()); size <= bound; size++ {
		k := size - core.Len()
		if k == 0 {
			try(core)
			continue
		}
		combinations(rest.Len(), k, func(idx []int) {
			picked := make(fd.AttrSet, len(idx))
			for i, j := range idx {
				picked[i] = rest[j]
			}
			try(core.Union(picked))
		})
	}

	res.PrimaryKey = Primary(res.CandidateKeys)
	return res
}

// Core returns the attributes of schema that appear on no right-hand side of
// deps. Every superkey of schema contains them.
func Core(schema fd.AttrSet, deps fd.Set) fd.AttrSet {
	var derived fd.AttrSet
	for _, d := range deps {
		derived = derived.Union(d.RHS)
	}
	return schema.Minus(derived)
}

// Primary picks the smallest candidate key, breaking ties by the
// lexicographic order of sorted attribute names. It returns nil when keys is
// empty.
func Primary(keys []fd.AttrSet) fd.AttrSet {
	var best fd.AttrSet
	for _, k := range keys {
		if best == nil || k.Compare(best) < 0 {
			best = k
		}
	}
	return best
}

// Candidates is a shorthand for Enumerate(...).CandidateKeys.
func Candidates(schema fd.AttrSet, deps fd.Set, bound int) []fd.AttrSet {
	return Enumerate(schema, deps, bound).CandidateKeys
}

func containsKey(keys []fd.AttrSet, subset fd.AttrSet) bool {
	for _, k := range keys {
		if k.SubsetOf(subset) {
			return true
		}
	}
	return false
}

// combinations calls fn with every k-combination of 0..n-1 in lexicographic
// order. fn must not retain idx.
func combinations(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
