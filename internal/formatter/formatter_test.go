package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/relation"
	"github.com/tordrt/fdnorm/internal/schema"
)

func chainResult(t *testing.T) *pipeline.Result {
	t.Helper()
	src, err := relation.New("r", []string{"a", "b", "c", "d"}, [][]string{
		{"1", "x", "p", "u"},
		{"2", "x", "p", "u"},
		{"3", "y", "q", "v"},
	})
	require.NoError(t, err)
	res, err := pipeline.Run(context.Background(), pipeline.Input{
		Source:       src,
		Dependencies: fd.MustParseSet("a -> b", "b -> c", "c -> d"),
	}, pipeline.Options{KeyBound: 5, RunID: "fmt"})
	require.NoError(t, err)
	return res
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).Format(chainResult(t)))
	out := buf.String()

	assert.Contains(t, out, "RELATION r (a, b, c, d)")
	assert.Contains(t, out, "MINIMAL COVER\n  a -> b\n  b -> c\n  c -> d\n")
	assert.Contains(t, out, "{a}+ = {a, b, c, d}")
	assert.Contains(t, out, "primary: {a}")
	assert.Contains(t, out, "DECOMPOSITION (3)")
	assert.Contains(t, out, "TABLE 3NF_table1 (PK: a)")
	assert.Contains(t, out, "b → 3NF_table2.b (N:1, exact)")
	assert.Contains(t, out, "lossless join: yes")
	assert.Contains(t, out, "dependency preserving: yes")
	assert.NotContains(t, out, "lost:")
}

func TestTextFormatterCannotEvaluate(t *testing.T) {
	src, err := relation.New("r", []string{"a", "b"}, nil)
	require.NoError(t, err)
	res, err := pipeline.Run(context.Background(), pipeline.Input{Source: src}, pipeline.Options{KeyBound: 5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).Format(res))
	out := buf.String()
	assert.Contains(t, out, "DEPENDENCIES\n  (none)")
	assert.Contains(t, out, "cannot evaluate:")
	assert.NotContains(t, out, "lossless join")
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf).Format(chainResult(t)))
	out := buf.String()

	assert.Contains(t, out, "# Normalization of r")
	assert.Contains(t, out, "## Minimal cover")
	assert.Contains(t, out, "- `a -> b`")
	assert.Contains(t, out, "## 3NF_table2")
	assert.Contains(t, out, "- **b:** text, PK, UNIQUE")
	assert.Contains(t, out, "- **b:** text, FK")
	assert.Contains(t, out, "- b → 3NF_table2.b (N:1, matched by exact)")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(chainResult(t)))

	var km schema.KeyMap
	require.NoError(t, json.Unmarshal(buf.Bytes(), &km))
	require.Len(t, km, 3)
	assert.Equal(t, []string{"a"}, km["3NF_table1"].PrimaryKeys)
	assert.Equal(t, schema.ForeignKey{RefTable: "3NF_table2", RefColumn: "b"}, km["3NF_table1"].ForeignKeys["b"])
	assert.Empty(t, km["3NF_table3"].ForeignKeys)
}

func TestJSONFormatterWithoutSchema(t *testing.T) {
	src, err := relation.New("r", []string{"a"}, nil)
	require.NoError(t, err)
	err = NewJSONFormatter(&bytes.Buffer{}).Format(&pipeline.Result{Source: src})
	assert.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&buf).Format(chainResult(t)))
	out := buf.String()

	assert.Contains(t, out, "Decomposition of r")
	assert.Contains(t, out, "3NF_table1")
	assert.Contains(t, out, "b → 3NF_table2.b")
	assert.Contains(t, out, "lossless join")
	assert.Contains(t, out, "dependency preserving")
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatMarkdown, FormatJSON, FormatTable} {
		f, err := New(format, &bytes.Buffer{})
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := New("yaml", &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown output format "yaml"`)
}

func TestMultiFileFormatter(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		header string
		entry  string
	}{
		{FormatText, ".txt", "NORMALIZATION OF r", "3NF_table1 (references: 3NF_table2)"},
		{FormatMarkdown, ".md", "# Normalization of r", "- **3NF_table1** (references: 3NF_table2)"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, NewMultiFileFormatter(dir, tt.format).Format(chainResult(t)))

			overview, err := os.ReadFile(filepath.Join(dir, "_overview"+tt.ext))
			require.NoError(t, err)
			assert.Contains(t, string(overview), tt.header)
			assert.Contains(t, string(overview), tt.entry)

			table2, err := os.ReadFile(filepath.Join(dir, "3NF_table2"+tt.ext))
			require.NoError(t, err)
			assert.Contains(t, string(table2), "3NF_table1.b → b")

			rows, err := os.ReadFile(filepath.Join(dir, "3NF_table2.csv"))
			require.NoError(t, err)
			assert.Equal(t, "b,c\nx,p\ny,q\n", string(rows))

			f, err := os.Open(filepath.Join(dir, "keymap.json"))
			require.NoError(t, err)
			defer f.Close()
			km, err := schema.ReadKeyMap(f)
			require.NoError(t, err)
			assert.Equal(t, []string{"3NF_table1", "3NF_table2", "3NF_table3"}, km.Names())
		})
	}
}
