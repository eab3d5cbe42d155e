package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/fdnorm"
	"github.com/tordrt/fdnorm/internal/config"
	"github.com/tordrt/fdnorm/internal/db"
	"github.com/tordrt/fdnorm/internal/formatter"
	"github.com/tordrt/fdnorm/internal/pipeline"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		in            inputFlags
		outFile       string
		outputDir     string
		artifactsDir  string
		artifactsDB   string
		persistURL    string
		persistSchema string
		primaryKeys   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [document.yaml]",
		Short: "Run the full normalization pipeline",
		Long: `Run closures, minimal cover, key enumeration, decomposition, verification
and key/reference inference on one relation.

The relation and its dependencies come from an analysis document or from
--csv/--columns/--db-url together with --fd and --fds-file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			applyLocal(cfg, outputDir, artifactsDir, artifactsDB, persistURL)
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := runPipeline(ctx, cfg, &in, args)
			if err != nil {
				return err
			}

			if err := writeOutput(cmd, outFile, func(w io.Writer) error {
				return fdnorm.FormatResult(res, &fdnorm.OutputOptions{
					Writer:    w,
					OutputDir: cfg.OutputDir,
					Format:    cfg.Output,
				})
			}); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			if cfg.PersistURL != "" {
				if err := fdnorm.Persist(ctx, cfg.PersistURL, res, &fdnorm.PersistOptions{
					SchemaName:  persistSchema,
					PrimaryKeys: primaryKeys,
				}); err != nil {
					return err
				}
				loggerFrom(ctx).Info("decomposition persisted", "run_id", res.RunID, "tables", len(res.Schema.Tables))
			}
			return nil
		},
	}

	in.register(cmd.Flags())
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Write an overview, one file per table, table CSVs and keymap.json here")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "Write each stage's artifact as JSON into this directory")
	cmd.Flags().StringVar(&artifactsDB, "artifacts-db", "", "Keep each stage's artifact in this SQLite database")
	cmd.Flags().StringVar(&persistURL, "persist-url", "", "Write the decomposed tables and keymap to this database")
	cmd.Flags().StringVar(&persistSchema, "persist-schema", "", "Schema (PostgreSQL) or database (MySQL) to persist into")
	cmd.Flags().BoolVar(&primaryKeys, "primary-keys", false, "Declare primary keys on persisted tables")
	return cmd
}

func newKeyMapCommand() *cobra.Command {
	var (
		in      inputFlags
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "keymap [document.yaml]",
		Short: "Print the keymap of the decomposition as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			res, err := runPipeline(cmd.Context(), cfg, &in, args)
			if err != nil {
				return err
			}
			return writeOutput(cmd, outFile, func(w io.Writer) error {
				return formatter.NewJSONFormatter(w).Format(res)
			})
		},
	}

	in.register(cmd.Flags())
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Output file (default: stdout)")
	return cmd
}

func newArtifactsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts DB [RUN_ID [NAME]]",
		Short: "List runs or print a stored artifact",
		Long: `Read an artifacts database written by analyze --artifacts-db.

With only the database path, list run ids, most recent first. With a run id,
list that run's artifacts. With a run id and an artifact name, print it.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := db.NewSQLiteClient(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to open artifacts database: %w", err)
			}
			defer func() { _ = client.Close() }()

			store, err := db.NewArtifactStore(ctx, client.GetDB())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch len(args) {
			case 1:
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}
				for _, id := range runs {
					_, _ = fmt.Fprintln(out, id)
				}
			case 2:
				for _, name := range artifactNames {
					if _, err := store.Get(ctx, args[1], name); err == nil {
						_, _ = fmt.Fprintln(out, name)
					}
				}
			default:
				body, err := store.Get(ctx, args[1], args[2])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, string(body))
			}
			return nil
		},
	}
}

var artifactNames = []string{
	pipeline.ArtifactClosures,
	pipeline.ArtifactMinimalCover,
	pipeline.ArtifactCandidateKeys,
	pipeline.ArtifactDecomposition,
	pipeline.ArtifactVerification,
	pipeline.ArtifactKeyMap,
}

// runPipeline loads the input, opens the configured artifact store and runs
// every stage.
func runPipeline(ctx context.Context, cfg *config.Config, in *inputFlags, args []string) (*pipeline.Result, error) {
	input, err := in.load(ctx, cfg, args)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := artifactStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	opts := analysisOptions(ctx, cfg)
	opts.Store = store
	res, err := pipeline.Run(ctx, input, fdnorm.PipelineOptions(opts))
	if err != nil {
		return nil, err
	}
	if !res.Verification.Evaluated() {
		loggerFrom(ctx).Warn("decomposition not verified", "reason", res.Verification.CannotEvaluate)
	}
	return res, nil
}

func artifactStore(ctx context.Context, cfg *config.Config) (pipeline.ArtifactStore, func(), error) {
	switch {
	case cfg.ArtifactsDir != "":
		return pipeline.DirStore{Dir: cfg.ArtifactsDir}, func() {}, nil
	case cfg.ArtifactsDB != "":
		client, err := db.NewSQLiteClient(ctx, cfg.ArtifactsDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open artifacts database: %w", err)
		}
		store, err := db.NewArtifactStore(ctx, client.GetDB())
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return pipeline.NopStore{}, func() {}, nil
	}
}

// applyLocal overrides the configuration with the command flags that were given.
func applyLocal(cfg *config.Config, outputDir, artifactsDir, artifactsDB, persistURL string) {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if artifactsDir != "" {
		cfg.ArtifactsDir = artifactsDir
	}
	if artifactsDB != "" {
		cfg.ArtifactsDB = artifactsDB
	}
	if persistURL != "" {
		cfg.PersistURL = persistURL
	}
}

func writeOutput(cmd *cobra.Command, outFile string, fn func(io.Writer) error) error {
	if outFile == "" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
