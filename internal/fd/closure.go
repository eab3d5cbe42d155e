package fd

// Closure returns X⁺: the smallest superset of x closed under deps.
//
// Each pass scans every dependency and adds its RHS whenever its LHS is
// already contained in the result. The loop stops after a pass that adds
// nothing. Growth is monotone, so the result does not depend on the order of
// deps.
func Closure(x AttrSet, deps Set) AttrSet {
	in := make(map[Attribute]struct{}, len(x))
	for _, a := range x {
		in[a] = struct{}{}
	}

	used := make([]bool, len(deps))
	for changed := true; changed; {
		changed = false
		for i, d := range deps {
			if used[i] || !containsAll(in, d.LHS) {
				continue
			}
			used[i] = true
			for _, a := range d.RHS {
				if _, ok := in[a]; !ok {
					in[a] = struct{}{}
					changed = true
				}
			}
		}
	}

	out := make([]Attribute, 0, len(in))
	for a := range in {
		out = append(out, a)
	}
	return NewAttrSet(out...)
}

func containsAll(in map[Attribute]struct{}, attrs AttrSet) bool {
	for _, a := range attrs {
		if _, ok := in[a]; !ok {
			return false
		}
	}
	return true
}

// IsSuperkey reports whether x determines every attribute of schema.
func IsSuperkey(x, schema AttrSet, deps Set) bool {
	return schema.SubsetOf(Closure(x, deps))
}
