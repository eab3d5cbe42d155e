package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact names handed to an ArtifactStore, one per stage.
const (
	ArtifactClosures      = "closures"
	ArtifactMinimalCover  = "minimal_cover"
	ArtifactCandidateKeys = "candidate_keys"
	ArtifactDecomposition = "decomposition"
	ArtifactVerification  = "verification"
	ArtifactKeyMap        = "keymap"
)

// ArtifactStore receives the output of each stage as it completes.
type ArtifactStore interface {
	Put(ctx context.Context, runID, name string, v any) error
}

// NopStore discards artifacts.
type NopStore struct{}

func (NopStore) Put(context.Context, string, string, any) error { return nil }

// DirStore writes each artifact as <Dir>/<name>.json, replacing the output
// of earlier runs.
type DirStore struct {
	Dir string
}

// Put encodes v as indented JSON.
func (s DirStore) Put(_ context.Context, _, name string, v any) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.Dir, name+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// MemStore keeps the latest artifact of each name in memory.
type MemStore struct {
	Artifacts map[string]any
	Order     []string
}

func (s *MemStore) Put(_ context.Context, _, name string, v any) error {
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]any)
	}
	s.Artifacts[name] = v
	s.Order = append(s.Order, name)
	return nil
}
