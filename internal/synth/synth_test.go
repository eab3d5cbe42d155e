package synth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/keys"
	"github.com/tordrt/fdnorm/internal/relation"
)

func attrsOf(tables []*relation.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Attrs().String()
	}
	return out
}

func namesOf(tables []*relation.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

func schemaOnly(names ...string) *relation.Table {
	return relation.FromAttrs("r", fd.ParseAttrSet(names...))
}

func TestSynthesizeChain(t *testing.T) {
	src := schemaOnly("a", "b", "c", "d")
	cover := fd.MinimalCover(fd.MustParseSet("a -> b", "b -> c", "c -> d"))
	require.Equal(t, []string{"a -> b", "b -> c", "c -> d"}, cover.Strings())

	out, err := Synthesize(src, cover, []fd.AttrSet{fd.ParseAttrSet("a")}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"{a, b}", "{b, c}", "{c, d}"}, attrsOf(out))
	assert.Equal(t, []string{"3NF_table1", "3NF_table2", "3NF_table3"}, namesOf(out))

	for _, tbl := range out {
		local := cover.Project(tbl.Attrs())
		assert.Empty(t, Classify(tbl.Attrs(), local, keys.Candidates(tbl.Attrs(), local, 0)), tbl.Name)
	}
}

func TestSynthesizeAddsKeyRelation(t *testing.T) {
	src := schemaOnly("a", "b", "c")
	deps := fd.MustParseSet("a -> b")
	cands := keys.Candidates(src.Attrs(), deps, 3)
	require.Equal(t, "{a, c}", cands[0].String())

	out, err := Synthesize(src, fd.MinimalCover(deps), cands, "R")
	require.NoError(t, err)
	assert.Equal(t, []string{"{a, b}", "{a, c}"}, attrsOf(out))
	assert.Equal(t, []string{"R1", "R2"}, namesOf(out))
}

func TestSynthesizeDropsContainedRelations(t *testing.T) {
	src := schemaOnly("a", "b", "c")
	cover := fd.MustParseSet("a, b -> c", "c -> a")
	out, err := Synthesize(src, cover, keys.Candidates(src.Attrs(), cover, 0), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"{a, b, c}"}, attrsOf(out))
}

func TestSynthesizeMergesIdenticalByRowUnion(t *testing.T) {
	src, err := relation.New("r", []string{"a", "b"}, [][]string{
		{"1", "x"},
		{"2", "y"},
		{"1", "x"},
	})
	require.NoError(t, err)

	cover := fd.MustParseSet("a -> b", "b -> a")
	out, err := Synthesize(src, cover, keys.Candidates(src.Attrs(), cover, 0), "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "{a, b}", out[0].Attrs().String())
	assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}}, out[0].Rows)
}

func TestSynthesizeNoDependencies(t *testing.T) {
	src := schemaOnly("a", "b")
	out, err := Synthesize(src, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"{a, b}"}, attrsOf(out))
}

func TestSynthesizeSchemaMismatch(t *testing.T) {
	src := schemaOnly("a", "b")
	_, err := Synthesize(src, fd.MustParseSet("a -> z"), nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fd.ErrSchemaMismatch))
}

func TestClassify(t *testing.T) {
	schema := fd.ParseAttrSet("a", "b", "c", "d", "e")
	deps := fd.MustParseSet("a, b -> c", "a -> d", "d -> e")
	cands := keys.Candidates(schema, deps, 0)
	require.Equal(t, "{a, b}", cands[0].String())

	got := Classify(schema, deps, cands)
	require.Len(t, got, 2)
	assert.Equal(t, "a -> d", got[0].Dependency.String())
	assert.Equal(t, Partial, got[0].Kind)
	assert.Equal(t, "d -> e", got[1].Dependency.String())
	assert.Equal(t, Transitive, got[1].Kind)

	assert.True(t, IsPartial(fd.MustParse("a -> d"), cands))
	assert.False(t, IsPartial(fd.MustParse("a, b -> c"), cands))
	assert.False(t, IsTransitive(fd.MustParse("a, b -> c"), schema, deps, cands[0]))
}

func TestSplit(t *testing.T) {
	src, err := relation.New("r", []string{"a", "b", "c", "d", "e"}, [][]string{
		{"1", "1", "x", "d1", "e1"},
		{"1", "2", "y", "d1", "e1"},
		{"2", "1", "z", "d2", "e1"},
	})
	require.NoError(t, err)
	cover := fd.MustParseSet("a, b -> c", "a -> d", "d -> e")

	tests := []struct {
		form  Form
		want  []string
		names []string
	}{
		{Form2NF, []string{"{a, b, c}", "{a, d, e}"}, []string{"2NF_table1", "2NF_table2"}},
		{Form3NFClassify, []string{"{a, b, c}", "{a, d}", "{d, e}"}, []string{"3NF_table1", "3NF_table2", "3NF_table3"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.form), func(t *testing.T) {
			out, err := Decompose(src, cover, nil, Options{Form: tt.form})
			require.NoError(t, err)
			assert.Equal(t, tt.want, attrsOf(out))
			assert.Equal(t, tt.names, namesOf(out))

			for _, tbl := range out {
				local := cover.Project(tbl.Attrs())
				for _, v := range Classify(tbl.Attrs(), local, keys.Candidates(tbl.Attrs(), local, 0)) {
					if tt.form == Form2NF {
						assert.NotEqual(t, Partial, v.Kind)
					} else {
						t.Errorf("%s still violates: %s (%s)", tbl.Name, v.Dependency, v.Kind)
					}
				}
			}
		})
	}

	out, err := Decompose(src, cover, nil, Options{Form: Form3NFClassify})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"d1", "e1"}, {"d2", "e1"}}, out[2].Rows)
}

func TestDecomposeUnknownForm(t *testing.T) {
	_, err := Decompose(schemaOnly("a"), nil, nil, Options{Form: "bcnf"})
	assert.Error(t, err)
}
