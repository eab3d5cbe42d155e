// Package cli provides the fdnorm command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/fdnorm/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type configKey struct{}

type loggerKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "fdnorm",
		Short: "Normalize relations from their functional dependencies",
		Long: `fdnorm computes attribute closures, a minimal cover and the keys of a relation
from its functional dependencies, decomposes it into third (or second) normal
form, verifies the decomposition and infers keys and foreign keys for the
resulting tables.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, used, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if used != "" {
				logger.Debug("using config file", "path", used)
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./fdnorm.yaml)")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	flags.StringP("output", "o", config.DefaultOutput, "Output format (text|markdown|json|table)")
	flags.IntP("bound", "k", config.DefaultKeyBound, "Largest key size to enumerate (0 for unbounded)")
	flags.String("form", config.DefaultNormalForm, "Decomposition (3nf|2nf|3nf-classify)")
	flags.String("prefix", config.DefaultNamePrefix, "Name prefix of decomposed tables")
	flags.String("db-url", "", "Source database URL (postgres://, mysql://, sqlite://)")
	flags.Int("parallelism", 0, "Concurrent per-table key inference (0 for one per CPU)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "markdown", "json", "table"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("form", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"3nf", "2nf", "3nf-classify"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newKeyMapCommand())
	rootCmd.AddCommand(newClosureCommand())
	rootCmd.AddCommand(newCoverCommand())
	rootCmd.AddCommand(newKeysCommand())
	rootCmd.AddCommand(newDecomposeCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newArtifactsCommand())
	rootCmd.AddCommand(newVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func configFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		KeyBound:   config.DefaultKeyBound,
		NormalForm: config.DefaultNormalForm,
		NamePrefix: config.DefaultNamePrefix,
		Output:     config.DefaultOutput,
	}
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
