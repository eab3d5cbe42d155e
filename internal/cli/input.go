package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tordrt/fdnorm"
	"github.com/tordrt/fdnorm/internal/config"
	"github.com/tordrt/fdnorm/internal/document"
	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/pipeline"
	"github.com/tordrt/fdnorm/internal/relation"
)

// inputFlags select the relation and dependencies a command works on. An
// analysis document given as the only argument replaces all of them.
type inputFlags struct {
	csv      string
	columns  []string
	table    string
	schema   string
	limit    int
	exclude  []string
	deps     []string
	depsFile string
	closures []string
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.csv, "csv", "", "CSV file holding the source relation")
	fs.StringSliceVar(&f.columns, "columns", nil, "Attributes of a relation without rows (comma-separated)")
	fs.StringVarP(&f.table, "table", "t", "", "Source table when reading from --db-url")
	fs.StringVarP(&f.schema, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	fs.IntVar(&f.limit, "limit", 0, "Read at most this many rows from the database (0 for all)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Columns to drop before analysis (comma-separated)")
	fs.StringArrayVar(&f.deps, "fd", nil, `Functional dependency such as "a, b -> c" (repeatable)`)
	fs.StringVar(&f.depsFile, "fds-file", "", "File with one functional dependency per line")
	fs.StringArrayVar(&f.closures, "closure", nil, `Attribute set whose closure to report, such as "a,b" (repeatable)`)
}

// load builds the pipeline input from a document argument or from flags.
func (f *inputFlags) load(ctx context.Context, cfg *config.Config, args []string) (pipeline.Input, error) {
	if len(args) == 1 {
		doc, err := document.Load(args[0])
		if err != nil {
			return pipeline.Input{}, err
		}
		return doc.Input()
	}

	src, err := f.source(ctx, cfg)
	if err != nil {
		return pipeline.Input{}, err
	}

	deps, err := fd.ParseSet(f.deps...)
	if err != nil {
		return pipeline.Input{}, err
	}
	if f.depsFile != "" {
		more, err := document.ReadDependencyFile(f.depsFile)
		if err != nil {
			return pipeline.Input{}, err
		}
		deps = append(deps, more...)
	}

	in := pipeline.Input{Source: src, Dependencies: deps}
	for _, c := range f.closures {
		in.Closures = append(in.Closures, fd.ParseAttrSet(strings.Split(c, ",")...))
	}
	return in, nil
}

func (f *inputFlags) source(ctx context.Context, cfg *config.Config) (*relation.Table, error) {
	given := 0
	for _, set := range []bool{f.csv != "", len(f.columns) > 0, cfg.DatabaseURL != ""} {
		if set {
			given++
		}
	}
	if given == 0 {
		return nil, errors.New("one of an analysis document, --csv, --columns, or --db-url must be specified")
	}
	if given > 1 {
		return nil, errors.New("only one of --csv, --columns, or --db-url can be specified")
	}

	if len(f.columns) > 0 {
		src, err := relation.New("relation", f.columns, nil)
		if err != nil {
			return nil, err
		}
		if len(f.exclude) > 0 {
			return nil, errors.New("--exclude needs --csv or --db-url")
		}
		return src, nil
	}

	src, err := fdnorm.LoadSource(ctx, &fdnorm.SourceOptions{
		CSVPath:        f.csv,
		DatabaseURL:    cfg.DatabaseURL,
		Table:          f.table,
		SchemaName:     f.schema,
		Limit:          f.limit,
		ExcludeColumns: f.exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load source relation: %w", err)
	}
	return src, nil
}

// analysisOptions converts the configuration for fdnorm.PipelineOptions.
func analysisOptions(ctx context.Context, cfg *config.Config) *fdnorm.Options {
	bound := cfg.KeyBound
	if bound == 0 {
		bound = -1
	}
	return &fdnorm.Options{
		KeyBound:    bound,
		Form:        cfg.NormalForm,
		NamePrefix:  cfg.NamePrefix,
		Parallelism: cfg.Parallelism,
		Logger:      loggerFrom(ctx),
	}
}
