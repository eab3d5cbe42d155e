package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// ForeignKey is the keymap form of a Relation.
type ForeignKey struct {
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// TableKeys is one keymap entry. The field names are the stable contract
// consumed by persistence and diagram rendering.
type TableKeys struct {
	Attributes    []string              `json:"attributes"`
	PrimaryKeys   []string              `json:"primary_keys"`
	CandidateKeys [][]string            `json:"candidate_keys"`
	SuperKeys     [][]string            `json:"superkeys"`
	ForeignKeys   map[string]ForeignKey `json:"foreign_keys"`
}

// KeyMap maps table names to their keys.
type KeyMap map[string]TableKeys

// KeyMap builds the keymap for every table. Slices are never nil so the JSON
// form always has arrays and objects, not nulls.
func (s *Schema) KeyMap() KeyMap {
	km := make(KeyMap, len(s.Tables))
	for _, t := range s.Tables {
		entry := TableKeys{
			Attributes:    nonNil(t.ColumnNames()),
			PrimaryKeys:   nonNil(slices.Clone(t.PrimaryKey)),
			CandidateKeys: nonNilNested(t.CandidateKeys),
			SuperKeys:     nonNilNested(t.SuperKeys),
			ForeignKeys:   make(map[string]ForeignKey, len(t.Relations)),
		}
		for _, r := range t.Relations {
			entry.ForeignKeys[r.SourceColumn] = ForeignKey{RefTable: r.TargetTable, RefColumn: r.TargetColumn}
		}
		km[t.Name] = entry
	}
	return km
}

// Names returns the table names in sorted order.
func (k KeyMap) Names() []string {
	names := make([]string, 0, len(k))
	for n := range k {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Write encodes the keymap as indented JSON.
func (k KeyMap) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(k); err != nil {
		return fmt.Errorf("failed to encode keymap: %w", err)
	}
	return nil
}

// ReadKeyMap decodes a keymap written by Write.
func ReadKeyMap(r io.Reader) (KeyMap, error) {
	var k KeyMap
	if err := json.NewDecoder(r).Decode(&k); err != nil {
		return nil, fmt.Errorf("failed to decode keymap: %w", err)
	}
	return k, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilNested(s [][]string) [][]string {
	out := make([][]string, len(s))
	for i, v := range s {
		out[i] = nonNil(slices.Clone(v))
	}
	return out
}
