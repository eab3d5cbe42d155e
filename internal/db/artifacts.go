package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const createArtifacts = `
	CREATE TABLE IF NOT EXISTS fdnorm_artifacts (
		run_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	)
`

// ErrArtifactNotFound is returned by Get for an unknown run or artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore keeps pipeline artifacts in a SQLite database, one JSON
// document per run and stage.
type ArtifactStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewArtifactStore creates the artifacts table when missing.
func NewArtifactStore(ctx context.Context, db *sql.DB) (*ArtifactStore, error) {
	if _, err := db.ExecContext(ctx, createArtifacts); err != nil {
		return nil, fmt.Errorf("failed to create artifacts table: %w", err)
	}
	return &ArtifactStore{db: db, now: time.Now}, nil
}

// Put stores v as JSON, replacing an earlier artifact of the same run and name.
func (s *ArtifactStore) Put(ctx context.Context, runID, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO fdnorm_artifacts (run_id, name, body, created_at) VALUES (?, ?, ?, ?)`,
		runID, name, string(body), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

// Get returns the raw JSON of one artifact.
func (s *ArtifactStore) Get(ctx context.Context, runID, name string) (json.RawMessage, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM fdnorm_artifacts WHERE run_id = ? AND name = ?`, runID, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", runID, name, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Runs lists run ids, most recent first.
func (s *ArtifactStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM fdnorm_artifacts GROUP BY run_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}
