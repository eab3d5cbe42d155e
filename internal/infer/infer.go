// Package infer computes keys for every table of a decomposition and links
// tables through heuristic, name-based foreign keys.
//
// Inference runs in two phases separated by a barrier. Phase one enumerates
// keys per table concurrently. Its primary keys are then frozen into a
// read-only index, and phase two matches columns against that index, again
// concurrently. No phase-two worker can observe a partially built index.
package infer

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/keys"
	"github.com/tordrt/fdnorm/internal/relation"
	"github.com/tordrt/fdnorm/internal/schema"
)

// Options tunes inference.
type Options struct {
	KeyBound    int    // maximum key size tried; <= 0 means unbounded
	Parallelism int    // concurrent workers per phase; <= 0 means unlimited
	Rules       []Rule // nil means DefaultRules
}

// Infer returns the decomposition as a schema.Schema with keys and foreign
// keys filled in. Keys of each table are computed under the full dependency
// set, so dependencies that hold in a table only through attributes outside
// it are still seen. Table order is preserved.
func Infer(ctx context.Context, tables []*relation.Table, deps fd.Set, opts Options) (*schema.Schema, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules
	}

	found := make([]keys.Result, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, t := range tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = keys.Enumerate(t.Attrs(), deps, opts.KeyBound)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("key inference: %w", err)
	}

	index, err := NewIndex(tables, found)
	if err != nil {
		return nil, err
	}

	relations := make([][]schema.Relation, len(tables))
	g, gctx = errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, t := range tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			relations[i] = References(t, index, rules)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reference inference: %w", err)
	}

	out := &schema.Schema{Tables: make([]schema.Table, len(tables))}
	for i, t := range tables {
		out.Tables[i] = buildTable(t, found[i], relations[i])
	}
	return out, nil
}

// PrimaryKeys is the frozen primary-key index shared by phase-two workers.
// It is never written after NewIndex returns.
type PrimaryKeys struct {
	names []string
	keys  map[string]fd.AttrSet
}

// NewIndex freezes the primary keys of tables. Tables without a key found
// within the bound are recorded with an empty key.
func NewIndex(tables []*relation.Table, found []keys.Result) (PrimaryKeys, error) {
	if len(tables) != len(found) {
		return PrimaryKeys{}, fmt.Errorf("index: %d tables but %d key results", len(tables), len(found))
	}
	idx := PrimaryKeys{keys: make(map[string]fd.AttrSet, len(tables))}
	for i, t := range tables {
		if _, dup := idx.keys[t.Name]; dup {
			return PrimaryKeys{}, fmt.Errorf("index: duplicate table name %q", t.Name)
		}
		idx.keys[t.Name] = found[i].PrimaryKey
		idx.names = append(idx.names, t.Name)
	}
	slices.Sort(idx.names)
	return idx, nil
}

// Tables returns the indexed table names in sorted order.
func (p PrimaryKeys) Tables() []string { return slices.Clone(p.names) }

// Get returns the primary key of table, or nil.
func (p PrimaryKeys) Get(table string) fd.AttrSet { return p.keys[table] }

// References links columns of t to primary key attributes of other tables.
// Only tables whose whole primary key appears among t's columns are
// considered. For each column the lowest-numbered matching rule wins; ties
// go to the first table in name order, then the first key attribute.
func References(t *relation.Table, index PrimaryKeys, rules []Rule) []schema.Relation {
	attrs := t.Attrs()
	var out []schema.Relation
	for _, col := range t.Columns {
		best := -1
		var rel schema.Relation
		for _, other := range index.names {
			if other == t.Name {
				continue
			}
			pk := index.keys[other]
			if pk.IsEmpty() || !pk.SubsetOf(attrs) {
				continue
			}
			for _, k := range pk {
				r := match(rules, string(col), string(k))
				if r < 0 || (best >= 0 && r >= best) {
					continue
				}
				best = r
				rel = schema.Relation{
					SourceColumn: string(col),
					TargetTable:  other,
					TargetColumn: string(k),
					Rule:         rules[r].Name,
					Cardinality:  "N:1",
				}
			}
		}
		if best >= 0 {
			out = append(out, rel)
		}
	}
	return out
}

func buildTable(t *relation.Table, k keys.Result, rels []schema.Relation) schema.Table {
	prime := k.Prime()
	unique := make(map[fd.Attribute]bool)
	for _, c := range k.CandidateKeys {
		if c.Len() == 1 {
			unique[c[0]] = true
		}
	}

	out := schema.Table{
		Name:       t.Name,
		Columns:    make([]schema.Column, len(t.Columns)),
		Relations:  rels,
		PrimaryKey: k.PrimaryKey.Strings(),
		Rows:       t.Rows,
	}
	for i, c := range t.Columns {
		out.Columns[i] = schema.Column{
			Name:     string(c),
			Type:     "text",
			Prime:    prime.Contains(c),
			IsUnique: unique[c],
		}
	}
	for _, c := range k.CandidateKeys {
		out.CandidateKeys = append(out.CandidateKeys, c.Strings())
	}
	for _, s := range k.SuperKeys {
		out.SuperKeys = append(out.SuperKeys, s.Strings())
	}
	return out
}
