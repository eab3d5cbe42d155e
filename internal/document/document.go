// Package document reads analysis documents: a YAML (or JSON) description of
// one relation, its functional dependencies and optionally its rows.
//
//	name: orders
//	columns: [order_id, customer_id, name]
//	dependencies:
//	  - order_id -> customer_id
//	  - customer_id -> name
//	closures:
//	  - [customer_id]
//	rows_csv: orders.csv
package document

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/relation"
)

// Document describes one analysis. Rows come either inline or from RowsCSV,
// never both. When RowsCSV is set Columns may be omitted and the CSV header
// is used.
type Document struct {
	Name         string     `yaml:"name" validate:"required"`
	Columns      []string   `yaml:"columns" validate:"required_without=RowsCSV,dive,required"`
	Dependencies []string   `yaml:"dependencies" validate:"dive,required"`
	Closures     [][]string `yaml:"closures" validate:"dive,min=1,dive,required"`
	Rows         [][]string `yaml:"rows" validate:"excluded_with=RowsCSV"`
	RowsCSV      string     `yaml:"rows_csv"`

	// dir resolves a relative RowsCSV; set by Load.
	dir string
}

var validate = validator.New()

// Decode reads a document. Unknown fields are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Document
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("analysis document is empty")
		}
		return nil, fmt.Errorf("failed to parse analysis document: %w", err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("invalid analysis document: %w", err)
	}
	return &d, nil
}

// Load reads a document from path. A relative rows_csv is resolved against
// the document's directory.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open analysis document: %w", err)
	}
	defer func() { _ = f.Close() }()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.dir = filepath.Dir(path)
	return d, nil
}

// Input builds the pipeline input the document describes.
func (d *Document) Input() (pipeline.Input, error) {
	src, err := d.source()
	if err != nil {
		return pipeline.Input{}, err
	}
	deps, err := fd.ParseSet(d.Dependencies...)
	if err != nil {
		return pipeline.Input{}, err
	}
	in := pipeline.Input{Source: src, Dependencies: deps}
	for _, c := range d.Closures {
		in.Closures = append(in.Closures, fd.ParseAttrSet(c...))
	}
	return in, nil
}

func (d *Document) source() (*relation.Table, error) {
	if d.RowsCSV == "" {
		return relation.New(d.Name, d.Columns, d.Rows)
	}

	path := d.RowsCSV
	if !filepath.IsAbs(path) && d.dir != "" {
		path = filepath.Join(d.dir, path)
	}
	t, err := relation.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	t.Name = d.Name
	if len(d.Columns) == 0 {
		return t, nil
	}

	want := fd.ParseAttrSet(d.Columns...)
	if !want.Equal(t.Attrs()) {
		return nil, fmt.Errorf("%s: CSV columns %v do not match document columns %v", path, t.ColumnNames(), d.Columns)
	}
	return t, nil
}

// ReadDependencies reads one dependency per line. Blank lines and lines
// starting with # are skipped.
func ReadDependencies(r io.Reader) (fd.Set, error) {
	var out fd.Set
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		d, err := fd.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dependencies: %w", err)
	}
	return out, nil
}

// ReadDependencyFile is ReadDependencies over a file.
func ReadDependencyFile(path string) (fd.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dependency file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadDependencies(f)
}
