package infer

import "strings"

// Rule matches a column of one table against a primary key attribute of
// another. Names are compared case-insensitively.
type Rule struct {
	Name  string
	Match func(column, key string) bool
}

// DefaultRules is the precedence order used when several rules match: the
// earliest rule wins.
var DefaultRules = []Rule{
	{Name: "exact", Match: func(column, key string) bool { return column == key }},
	{Name: "suffix", Match: strings.HasSuffix},
	{Name: "substring", Match: strings.Contains},
	{Name: "id_suffix", Match: matchIDSuffix},
}

// matchIDSuffix links customer_ref_id to a customer_id key: the column ends
// in _id and contains the key's stem.
func matchIDSuffix(column, key string) bool {
	if !strings.HasSuffix(column, "_id") {
		return false
	}
	stem := strings.TrimSuffix(key, "_id")
	return stem != "" && strings.Contains(column, stem)
}

// match returns the index of the first rule in rules that links column to
// key, or -1.
func match(rules []Rule, column, key string) int {
	column, key = strings.ToLower(column), strings.ToLower(key)
	for i, r := range rules {
		if r.Match(column, key) {
			return i
		}
	}
	return -1
}
