package fd

// MinimalCover returns a canonical cover of deps: closure-equivalent to deps,
// every RHS a single attribute, no extraneous LHS attribute and no redundant
// dependency. The result is deterministic for a given input order.
func MinimalCover(deps Set) Set {
	return RemoveRedundant(RemoveExtraneous(deps.Singletons()))
}

// RemoveExtraneous drops LHS attributes that are not needed to derive the
// RHS. deps must have singleton right-hand sides.
//
// Attributes are tried in sorted order and each dependency is revisited until
// a full pass removes nothing. Reductions are written back into the working
// set immediately, so later tests see them; every reduction keeps the set
// equivalent to the input, which makes that safe.
func RemoveExtraneous(deps Set) Set {
	work := make(Set, len(deps))
	copy(work, deps)

	for i := range work {
		for reduced := true; reduced; {
			reduced = false
			lhs := work[i].LHS
			if len(lhs) < 2 {
				break
			}
			for _, b := range lhs {
				candidate := lhs.Without(b)
				if work[i].RHS.SubsetOf(Closure(candidate, work)) {
					work[i] = Dependency{LHS: candidate, RHS: work[i].RHS}
					reduced = true
					break
				}
			}
		}
	}
	return work
}

// RemoveRedundant drops dependencies implied by the rest of the set.
//
// The test for each dependency runs against the running result, not the
// input: of two equal dependencies only the second is dropped. One pass is
// enough. A dependency kept at its turn is not implied by the set present at
// that moment, and the final set is a subset of that set, so it cannot imply
// the dependency either.
func RemoveRedundant(deps Set) Set {
	work := make(Set, len(deps))
	copy(work, deps)

	for i := 0; i < len(work); {
		if work.Without(i).Implies(work[i]) {
			work = work.Without(i)
			continue
		}
		i++
	}
	if len(work) == 0 {
		return nil
	}
	return work
}
