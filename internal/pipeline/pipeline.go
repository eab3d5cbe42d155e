// Package pipeline runs the full analysis of one relation in a fixed order:
// closures, minimal cover, key enumeration, decomposition, verification and
// key/reference inference. Each stage hands its output to an ArtifactStore
// before the next one starts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tordrt/fdnorm/internal/fd"
	"github.com/tordrt/fdnorm/internal/infer"
	"github.com/tordrt/fdnorm/internal/keys"
	"github.com/tordrt/fdnorm/internal/relation"
	"github.com/tordrt/fdnorm/internal/schema"
	"github.com/tordrt/fdnorm/internal/synth"
	"github.com/tordrt/fdnorm/internal/verify"
)

// Stage names, in execution order.
const (
	StageClosure   = "closure"
	StageCover     = "cover"
	StageKeys      = "keys"
	StageSynthesis = "synthesis"
	StageVerify    = "verify"
	StageInfer     = "infer"
)

// Input is the relation to analyze and the dependencies proposed for it.
type Input struct {
	Source       *relation.Table
	Dependencies fd.Set
	// Closures lists extra attribute sets whose closure should be reported
	// alongside the closure of every dependency's LHS.
	Closures []fd.AttrSet
}

// Options configures Run.
type Options struct {
	KeyBound    int
	Form        synth.Form
	NamePrefix  string
	Parallelism int
	Store       ArtifactStore // nil means NopStore
	Logger      *slog.Logger  // nil means discard
	RunID       string        // empty means a new UUID
}

// ClosureEntry is one computed closure.
type ClosureEntry struct {
	Attrs   fd.AttrSet `json:"attrs"`
	Closure fd.AttrSet `json:"closure"`
}

// Verification is the outcome of the lossless-join and preservation checks.
// CannotEvaluate is set when the checks could not run at all, in which case
// the boolean verdicts carry no meaning.
type Verification struct {
	Lossless       bool       `json:"lossless"`
	Witness        int        `json:"witness"`
	Tableau        [][]string `json:"tableau,omitempty"`
	Preserved      bool       `json:"dependency_preserving"`
	Lost           fd.Set     `json:"lost_dependencies"`
	CannotEvaluate string     `json:"cannot_evaluate,omitempty"`
}

// Evaluated reports whether the verdicts are meaningful.
func (v Verification) Evaluated() bool { return v.CannotEvaluate == "" }

// Result collects every stage's output. Completed names the last stage that
// finished; on error the fields of later stages are zero.
type Result struct {
	RunID        string
	Source       *relation.Table
	Dependencies fd.Set
	Closures     []ClosureEntry
	Cover        fd.Set
	Keys         keys.Result
	Tables       []*relation.Table
	Violations   []synth.Violation
	Verification Verification
	Schema       *schema.Schema
	Completed    string
}

// KeyMap returns the keymap of the inferred schema, or nil before inference.
func (r *Result) KeyMap() schema.KeyMap {
	if r.Schema == nil {
		return nil
	}
	return r.Schema.KeyMap()
}

// Run executes every stage. A schema mismatch halts the run at the stage
// that found it and returns the partial result together with the error.
// A verification precondition failure is recorded on the result and the
// run continues.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	if in.Source == nil {
		return nil, errors.New("pipeline: no source relation")
	}
	r := &runner{
		in:     in,
		opts:   opts,
		store:  opts.Store,
		logger: opts.Logger,
		res: &Result{
			RunID:        opts.RunID,
			Source:       in.Source,
			Dependencies: in.Dependencies,
		},
	}
	if r.store == nil {
		r.store = NopStore{}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.res.RunID == "" {
		r.res.RunID = uuid.NewString()
	}
	r.logger = r.logger.With("run_id", r.res.RunID)

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageClosure, r.closures},
		{StageCover, r.cover},
		{StageKeys, r.keys},
		{StageSynthesis, r.synthesize},
		{StageVerify, r.verify},
		{StageInfer, r.infer},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		r.logger.Debug("stage started", "stage", s.name)
		if err := s.fn(ctx); err != nil {
			r.logger.Error("stage failed", "stage", s.name, "error", err)
			return r.res, fmt.Errorf("%s stage: %w", s.name, err)
		}
		r.res.Completed = s.name
	}
	return r.res, nil
}

type runner struct {
	in     Input
	opts   Options
	store  ArtifactStore
	logger *slog.Logger
	res    *Result
}

func (r *runner) put(ctx context.Context, name string, v any) error {
	if err := r.store.Put(ctx, r.res.RunID, name, v); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

func (r *runner) closures(ctx context.Context) error {
	universe := r.in.Source.Attrs()
	if err := r.in.Dependencies.Validate(universe); err != nil {
		return err
	}

	seen := make(map[string]bool)
	add := func(x fd.AttrSet) {
		if seen[x.Key()] {
			return
		}
		seen[x.Key()] = true
		r.res.Closures = append(r.res.Closures, ClosureEntry{Attrs: x, Closure: fd.Closure(x, r.in.Dependencies)})
	}
	for _, g := range r.in.Dependencies.GroupByLHS() {
		add(g.LHS)
	}
	for _, x := range r.in.Closures {
		if err := fd.RequireSubset("closure", x, universe); err != nil {
			return err
		}
		add(x)
	}

	r.logger.Info("closures computed", "stage", StageClosure, "fds", len(r.in.Dependencies), "closures", len(r.res.Closures))
	return r.put(ctx, ArtifactClosures, r.res.Closures)
}

func (r *runner) cover(ctx context.Context) error {
	r.res.Cover = fd.MinimalCover(r.in.Dependencies)
	r.logger.Info("minimal cover computed", "stage", StageCover, "fds", len(r.in.Dependencies), "cover", len(r.res.Cover))
	return r.put(ctx, ArtifactMinimalCover, r.res.Cover)
}

func (r *runner) keys(ctx context.Context) error {
	r.res.Keys = keys.Enumerate(r.in.Source.Attrs(), r.res.Cover, r.opts.KeyBound)
	if !r.res.Keys.Found() {
		r.logger.Warn("no candidate key found within bound", "stage", StageKeys, "bound", r.opts.KeyBound)
	}
	r.logger.Info("keys enumerated", "stage", StageKeys, "keys", len(r.res.Keys.CandidateKeys), "superkeys", len(r.res.Keys.SuperKeys))
	return r.put(ctx, ArtifactCandidateKeys, r.res.Keys)
}

func (r *runner) synthesize(ctx context.Context) error {
	tables, err := synth.Decompose(r.in.Source, r.res.Cover, r.res.Keys.CandidateKeys, synth.Options{
		Form:       r.opts.Form,
		NamePrefix: r.opts.NamePrefix,
		KeyBound:   r.opts.KeyBound,
	})
	if err != nil {
		return err
	}
	r.res.Tables = tables
	r.res.Violations = synth.Classify(r.in.Source.Attrs(), r.res.Cover, r.res.Keys.CandidateKeys)

	r.logger.Info("decomposition built", "stage", StageSynthesis, "relations", len(tables), "violations", len(r.res.Violations))
	return r.put(ctx, ArtifactDecomposition, tables)
}

func (r *runner) verify(ctx context.Context) error {
	schemas := make([]fd.AttrSet, len(r.res.Tables))
	for i, t := range r.res.Tables {
		schemas[i] = t.Attrs()
	}

	v, err := r.evaluate(schemas)
	switch {
	case errors.Is(err, fd.ErrPrecondition):
		v = Verification{Witness: -1, CannotEvaluate: err.Error()}
		r.logger.Warn("verification could not evaluate", "stage", StageVerify, "reason", err)
	case err != nil:
		return err
	default:
		r.logger.Info("decomposition verified", "stage", StageVerify, "relations", len(schemas),
			"lossless", v.Lossless, "preserved", v.Preserved, "lost", len(v.Lost))
	}
	r.res.Verification = v
	return r.put(ctx, ArtifactVerification, v)
}

func (r *runner) evaluate(schemas []fd.AttrSet) (Verification, error) {
	lj, err := verify.Lossless(r.in.Source.Attrs(), schemas, r.in.Dependencies)
	if err != nil {
		return Verification{}, err
	}
	preserved, err := verify.Preserved(r.in.Dependencies, schemas)
	if err != nil {
		return Verification{}, err
	}
	lost, err := verify.LostDependencies(r.in.Dependencies, schemas)
	if err != nil {
		return Verification{}, err
	}
	return Verification{
		Lossless:  lj.Lossless,
		Witness:   lj.Witness,
		Tableau:   lj.Tableau,
		Preserved: preserved,
		Lost:      lost,
	}, nil
}

func (r *runner) infer(ctx context.Context) error {
	s, err := infer.Infer(ctx, r.res.Tables, r.res.Cover, infer.Options{
		KeyBound:    r.opts.KeyBound,
		Parallelism: r.opts.Parallelism,
	})
	if err != nil {
		return err
	}
	r.res.Schema = s

	refs := 0
	for _, t := range s.Tables {
		refs += len(t.Relations)
	}
	r.logger.Info("keys and references inferred", "stage", StageInfer, "relations", len(s.Tables), "references", refs)
	return r.put(ctx, ArtifactKeyMap, s.KeyMap())
}
