package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/fdnorm"
	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/keys"
	"github.com/tordrt/fdnorm/internal/relation"
	"github.com/tordrt/fdnorm/internal/synth"
	"github.com/tordrt/fdnorm/internal/verify"
)

// The commands in this file run a single step and print its result as text,
// or as JSON when --output json is set.

func newClosureCommand() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "closure [document.yaml]",
		Short: "Compute attribute closures",
		Long: `Print the closure of every --closure set, or of every dependency's
left-hand side when none is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			input, err := in.load(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			universe := input.Source.Attrs()
			if err := input.Dependencies.Validate(universe); err != nil {
				return err
			}

			sets := input.Closures
			if len(sets) == 0 {
				for _, g := range input.Dependencies.GroupByLHS() {
					sets = append(sets, g.LHS)
				}
			}

			type entry struct {
				Attrs   fd.AttrSet `json:"attrs"`
				Closure fd.AttrSet `json:"closure"`
			}
			entries := make([]entry, 0, len(sets))
			for _, x := range sets {
				if err := fd.RequireSubset("closure", x, universe); err != nil {
					return err
				}
				entries = append(entries, entry{Attrs: x, Closure: fd.Closure(x, input.Dependencies)})
			}

			return render(cmd, cfg.Output, entries, func(w io.Writer) {
				for _, e := range entries {
					_, _ = fmt.Fprintf(w, "%s+ = %s\n", e.Attrs, e.Closure)
				}
			})
		},
	}
	in.register(cmd.Flags())
	return cmd
}

func newCoverCommand() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "cover [document.yaml]",
		Short: "Compute a minimal cover of the dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			input, err := in.load(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			if err := input.Dependencies.Validate(input.Source.Attrs()); err != nil {
				return err
			}

			cover := fd.MinimalCover(input.Dependencies)
			return render(cmd, cfg.Output, cover, func(w io.Writer) {
				for _, d := range cover {
					_, _ = fmt.Fprintln(w, d)
				}
			})
		},
	}
	in.register(cmd.Flags())
	return cmd
}

func newKeysCommand() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "keys [document.yaml]",
		Short: "Enumerate candidate keys, the primary key and superkeys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			input, err := in.load(ctx, cfg, args)
			if err != nil {
				return err
			}
			universe := input.Source.Attrs()
			if err := input.Dependencies.Validate(universe); err != nil {
				return err
			}

			bound := fdnorm.PipelineOptions(analysisOptions(ctx, cfg)).KeyBound
			res := keys.Enumerate(universe, fd.MinimalCover(input.Dependencies), bound)
			if !res.Found() {
				loggerFrom(ctx).Warn("no candidate key found within bound", "bound", cfg.KeyBound)
			}

			return render(cmd, cfg.Output, res, func(w io.Writer) {
				if !res.Found() {
					_, _ = fmt.Fprintf(w, "no candidate key of at most %d attributes\n", cfg.KeyBound)
					return
				}
				_, _ = fmt.Fprintln(w, "candidate keys:")
				for _, k := range res.CandidateKeys {
					_, _ = fmt.Fprintf(w, "  %s\n", k)
				}
				_, _ = fmt.Fprintf(w, "primary key: %s\n", res.PrimaryKey)
				_, _ = fmt.Fprintf(w, "superkeys (%d):\n", len(res.SuperKeys))
				for _, k := range res.SuperKeys {
					_, _ = fmt.Fprintf(w, "  %s\n", k)
				}
			})
		},
	}
	in.register(cmd.Flags())
	return cmd
}

func newDecomposeCommand() *cobra.Command {
	var (
		in     inputFlags
		rowDir string
	)
	cmd := &cobra.Command{
		Use:   "decompose [document.yaml]",
		Short: "Decompose the relation without verification or inference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			input, err := in.load(ctx, cfg, args)
			if err != nil {
				return err
			}
			if err := input.Dependencies.Validate(input.Source.Attrs()); err != nil {
				return err
			}

			opts := fdnorm.PipelineOptions(analysisOptions(ctx, cfg))
			cover := fd.MinimalCover(input.Dependencies)
			candidates := keys.Candidates(input.Source.Attrs(), cover, opts.KeyBound)
			tables, err := synth.Decompose(input.Source, cover, candidates, synth.Options{
				Form:       opts.Form,
				NamePrefix: opts.NamePrefix,
				KeyBound:   opts.KeyBound,
			})
			if err != nil {
				return err
			}
			violations := synth.Classify(input.Source.Attrs(), cover, candidates)

			if rowDir != "" {
				if err := writeTables(rowDir, tables); err != nil {
					return err
				}
			}

			return render(cmd, cfg.Output, tables, func(w io.Writer) {
				for _, t := range tables {
					_, _ = fmt.Fprintf(w, "%s %s (%d rows)\n", t.Name, t.Attrs(), len(t.Rows))
				}
				for _, v := range violations {
					_, _ = fmt.Fprintf(w, "source violation: %s (%s)\n", v.Dependency, v.Kind)
				}
			})
		},
	}
	in.register(cmd.Flags())
	cmd.Flags().StringVar(&rowDir, "rows-dir", "", "Write each decomposed table as <name>.csv into this directory")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var (
		in      inputFlags
		schemas []string
	)
	cmd := &cobra.Command{
		Use:   "verify [document.yaml] --relation a,b --relation b,c",
		Short: "Check a decomposition for a lossless join and dependency preservation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			input, err := in.load(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			universe := input.Source.Attrs()
			if err := input.Dependencies.Validate(universe); err != nil {
				return err
			}

			sets := make([]fd.AttrSet, len(schemas))
			for i, s := range schemas {
				sets[i] = fd.ParseAttrSet(strings.Split(s, ",")...)
				if err := fd.RequireSubset("verify", sets[i], universe); err != nil {
					return err
				}
			}

			type report struct {
				Lossless       bool       `json:"lossless"`
				Tableau        [][]string `json:"tableau,omitempty"`
				Preserved      bool       `json:"dependency_preserving"`
				Lost           fd.Set     `json:"lost_dependencies"`
				CannotEvaluate string     `json:"cannot_evaluate,omitempty"`
			}
			var r report
			lj, err := verify.Lossless(universe, sets, input.Dependencies)
			if err == nil {
				r.Lossless, r.Tableau = lj.Lossless, lj.Tableau
				r.Preserved, err = verify.Preserved(input.Dependencies, sets)
			}
			if err == nil {
				r.Lost, err = verify.LostDependencies(input.Dependencies, sets)
			}
			switch {
			case errors.Is(err, fd.ErrPrecondition):
				r = report{CannotEvaluate: err.Error()}
			case err != nil:
				return err
			}

			return render(cmd, cfg.Output, r, func(w io.Writer) {
				if r.CannotEvaluate != "" {
					_, _ = fmt.Fprintf(w, "cannot evaluate: %s\n", r.CannotEvaluate)
					return
				}
				_, _ = fmt.Fprintf(w, "lossless join: %t\n", r.Lossless)
				_, _ = fmt.Fprintf(w, "dependency preserving: %t\n", r.Preserved)
				for _, d := range r.Lost {
					_, _ = fmt.Fprintf(w, "lost: %s\n", d)
				}
			})
		},
	}
	in.register(cmd.Flags())
	cmd.Flags().StringArrayVarP(&schemas, "relation", "r", nil, `Attributes of one decomposed relation, such as "a,b" (repeatable)`)
	return cmd
}

// render prints v as indented JSON for the json output format and calls text
// otherwise.
func render(cmd *cobra.Command, output string, v any, text func(io.Writer)) error {
	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}

func writeTables(dir string, tables []*relation.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create rows directory: %w", err)
	}
	for _, t := range tables {
		if err := writeCSV(filepath.Join(dir, t.Name+".csv"), t); err != nil {
			return fmt.Errorf("failed to write %s: %w", t.Name, err)
		}
	}
	return nil
}

func writeCSV(path string, t *relation.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := relation.WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
