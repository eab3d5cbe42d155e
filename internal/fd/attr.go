// Package fd models attributes, attribute sets and functional dependencies,
// and implements the closure and minimal-cover procedures every other part
// of the engine builds on.
package fd

import (
	"encoding/json"
	"slices"
	"strings"
)

// Attribute is a normalized attribute (column) name.
type Attribute string

// NormalizeAttribute trims surrounding whitespace and trailing dots, lowercases
// the name and replaces inner spaces with underscores.
func NormalizeAttribute(name string) Attribute {
	s := strings.TrimSpace(name)
	s = strings.TrimRight(s, ".")
	s = strings.ToLower(strings.TrimSpace(s))
	return Attribute(strings.ReplaceAll(s, " ", "_"))
}

// AttrSet is a sorted, duplicate-free set of attributes. The zero value is the
// empty set. Operations never modify their receiver.
type AttrSet []Attribute

// NewAttrSet builds a set from attributes, sorting and de-duplicating them.
func NewAttrSet(attrs ...Attribute) AttrSet {
	if len(attrs) == 0 {
		return nil
	}
	s := slices.Clone(attrs)
	slices.Sort(s)
	return AttrSet(slices.Compact(s))
}

// ParseAttrSet normalizes every name and builds a set. Empty names are skipped.
func ParseAttrSet(names ...string) AttrSet {
	attrs := make([]Attribute, 0, len(names))
	for _, n := range names {
		if a := NormalizeAttribute(n); a != "" {
			attrs = append(attrs, a)
		}
	}
	return NewAttrSet(attrs...)
}

// Len returns the number of attributes in the set.
func (s AttrSet) Len() int { return len(s) }

// IsEmpty reports whether the set has no attributes.
func (s AttrSet) IsEmpty() bool { return len(s) == 0 }

// Contains reports whether a is a member of s.
func (s AttrSet) Contains(a Attribute) bool {
	_, ok := slices.BinarySearch(s, a)
	return ok
}

// SubsetOf reports whether every attribute of s is in o.
func (s AttrSet) SubsetOf(o AttrSet) bool {
	if len(s) > len(o) {
		return false
	}
	j := 0
	for _, a := range s {
		for j < len(o) && o[j] < a {
			j++
		}
		if j == len(o) || o[j] != a {
			return false
		}
		j++
	}
	return true
}

// ProperSubsetOf reports whether s is a subset of o and smaller than it.
func (s AttrSet) ProperSubsetOf(o AttrSet) bool {
	return len(s) < len(o) && s.SubsetOf(o)
}

// Equal reports whether both sets hold the same attributes.
func (s AttrSet) Equal(o AttrSet) bool {
	return slices.Equal(s, o)
}

// Intersects reports whether s and o share at least one attribute.
func (s AttrSet) Intersects(o AttrSet) bool {
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			return true
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Union returns s ∪ o.
func (s AttrSet) Union(o AttrSet) AttrSet {
	out := make(AttrSet, 0, len(s)+len(o))
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < o[j]:
			out = append(out, s[i])
			i++
		default:
			out = append(out, o[j])
			j++
		}
	}
	out = append(out, s[i:]...)
	out = append(out, o[j:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Intersect returns s ∩ o.
func (s AttrSet) Intersect(o AttrSet) AttrSet {
	var out AttrSet
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Minus returns s − o.
func (s AttrSet) Minus(o AttrSet) AttrSet {
	var out AttrSet
	for _, a := range s {
		if !o.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}

// Without returns s with a removed.
func (s AttrSet) Without(a Attribute) AttrSet {
	return s.Minus(AttrSet{a})
}

// Strings returns the attribute names in sorted order.
func (s AttrSet) Strings() []string {
	out := make([]string, len(s))
	for i, a := range s {
		out[i] = string(a)
	}
	return out
}

// Key returns a string usable as a map key for the set.
func (s AttrSet) Key() string {
	return strings.Join(s.Strings(), "\x00")
}

// Compare orders sets by cardinality, then lexicographically by their sorted
// attribute names.
func (s AttrSet) Compare(o AttrSet) int {
	if len(s) != len(o) {
		return len(s) - len(o)
	}
	return slices.Compare(s, o)
}

func (s AttrSet) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}

// MarshalJSON encodes the set as a sorted array of names.
func (s AttrSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of names, normalizing them.
func (s *AttrSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = ParseAttrSet(names...)
	return nil
}

// SortSets orders sets by Compare in place.
func SortSets(sets []AttrSet) {
	slices.SortFunc(sets, AttrSet.Compare)
}
