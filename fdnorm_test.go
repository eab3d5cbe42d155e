package fdnorm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/relation"
)

const ordersCSV = `order_id,customer_id,customer_name,total
1,10,Ada,5.00
2,10,Ada,7.50
3,11,Grace,2.25
`

func writeOrders(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(ordersCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadSource(t *testing.T) {
	ctx := context.Background()
	path := writeOrders(t)

	tests := []struct {
		name     string
		opts     *SourceOptions
		wantCols []string
		wantRows int
		wantErr  bool
	}{
		{
			name:     "CSV file",
			opts:     &SourceOptions{CSVPath: path},
			wantCols: []string{"order_id", "customer_id", "customer_name", "total"},
			wantRows: 3,
		},
		{
			name:     "CSV file with excluded columns",
			opts:     &SourceOptions{CSVPath: path, ExcludeColumns: []string{"order_id", "total"}},
			wantCols: []string{"customer_id", "customer_name"},
			wantRows: 2,
		},
		{
			name:    "excluding an unknown column",
			opts:    &SourceOptions{CSVPath: path, ExcludeColumns: []string{"sku"}},
			wantErr: true,
		},
		{
			name:    "both CSV and database",
			opts:    &SourceOptions{CSVPath: path, DatabaseURL: "sqlite://x.db"},
			wantErr: true,
		},
		{
			name:    "database without table",
			opts:    &SourceOptions{DatabaseURL: "sqlite://x.db"},
			wantErr: true,
		},
		{
			name:    "no source",
			opts:    &SourceOptions{},
			wantErr: true,
		},
		{
			name:    "nil options",
			opts:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := LoadSource(ctx, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if src.Name != "orders" {
				t.Errorf("Name = %q, want orders", src.Name)
			}
			if got := strings.Join(src.ColumnNames(), ","); got != strings.Join(tt.wantCols, ",") {
				t.Errorf("Columns = %s, want %s", got, strings.Join(tt.wantCols, ","))
			}
			if len(src.Rows) != tt.wantRows {
				t.Errorf("Expected %d rows, got %d", tt.wantRows, len(src.Rows))
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	src, err := LoadSource(ctx, &SourceOptions{CSVPath: writeOrders(t)})
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}

	res, err := Analyze(ctx, src, []string{
		"order_id -> customer_id, total",
		"customer_id -> customer_name",
	}, &Options{Closures: [][]string{{"customer_id"}}})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if got := res.Keys.PrimaryKey.String(); got != "{order_id}" {
		t.Errorf("primary key = %s, want {order_id}", got)
	}
	if len(res.Schema.Tables) != 2 {
		t.Fatalf("Expected 2 tables, got %d", len(res.Schema.Tables))
	}
	if !res.Verification.Lossless || !res.Verification.Preserved {
		t.Errorf("verification = %+v, want lossless and preserved", res.Verification)
	}

	km := res.KeyMap()
	fk, ok := km["3NF_table1"].ForeignKeys["customer_id"]
	if !ok || fk.RefTable != "3NF_table2" || fk.RefColumn != "customer_id" {
		t.Errorf("customer_id reference = %+v, want 3NF_table2.customer_id", fk)
	}
}

func TestAnalyzeSchemaMismatch(t *testing.T) {
	src, err := relation.New("r", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Analyze(context.Background(), src, []string{"a -> z"}, nil)
	if !errors.Is(err, fd.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want schema mismatch", err)
	}
	if res == nil || res.Schema != nil {
		t.Errorf("expected a partial result without a schema, got %+v", res)
	}
}

func TestAnalyzeInvalidDependency(t *testing.T) {
	src, err := relation.New("r", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Analyze(context.Background(), src, []string{"a b"}, nil); err == nil {
		t.Error("Expected error but got none")
	}
}

func TestPipelineOptions(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantBound  int
		wantPrefix string
	}{
		{"defaults", Options{}, DefaultKeyBound, ""},
		{"explicit bound", Options{KeyBound: 3}, 3, ""},
		{"unbounded", Options{KeyBound: -1}, -1, ""},
		{"2nf drops the 3nf prefix", Options{Form: "2nf", NamePrefix: "3NF_table"}, DefaultKeyBound, ""},
		{"2nf keeps a custom prefix", Options{Form: "2nf", NamePrefix: "R"}, DefaultKeyBound, "R"},
		{"3nf keeps its prefix", Options{Form: "3nf", NamePrefix: "3NF_table"}, DefaultKeyBound, "3NF_table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PipelineOptions(&tt.opts)
			if got.KeyBound != tt.wantBound {
				t.Errorf("KeyBound = %d, want %d", got.KeyBound, tt.wantBound)
			}
			if got.NamePrefix != tt.wantPrefix {
				t.Errorf("NamePrefix = %q, want %q", got.NamePrefix, tt.wantPrefix)
			}
		})
	}
}

func TestFormatResultToWriter(t *testing.T) {
	ctx := context.Background()
	src, _ := relation.New("r", []string{"a", "b", "c"}, nil)
	res, err := Analyze(ctx, src, []string{"a -> b", "b -> c"}, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	var buf bytes.Buffer
	if err := FormatResult(res, &OutputOptions{Writer: &buf, Format: "markdown"}); err != nil {
		t.Fatalf("FormatResult failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "# Normalization of r") {
		t.Error("Output should contain the markdown header")
	}
	if !strings.Contains(output, "## 3NF_table1") {
		t.Error("Output should contain 3NF_table1")
	}

	if err := FormatResult(res, &OutputOptions{Writer: &buf, Format: "xml"}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestFormatResultToDirectory(t *testing.T) {
	ctx := context.Background()
	src, err := LoadSource(ctx, &SourceOptions{CSVPath: writeOrders(t)})
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	res, err := Analyze(ctx, src, []string{"order_id -> customer_id, total", "customer_id -> customer_name"}, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := FormatResult(res, &OutputOptions{OutputDir: dir}); err != nil {
		t.Fatalf("FormatResult failed: %v", err)
	}

	for _, name := range []string{"_overview.md", "3NF_table1.md", "3NF_table2.md", "3NF_table1.csv", "keymap.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			t.Errorf("Expected file %s to exist", name)
		}
	}
}

func TestPersistWithoutSchema(t *testing.T) {
	src, _ := relation.New("r", []string{"a"}, nil)
	res, _ := Analyze(context.Background(), src, []string{"a -> z"}, nil)
	if err := Persist(context.Background(), "sqlite://unused.db", res, nil); err == nil {
		t.Error("Expected error but got none")
	}
}
