package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/oklog/ulid/v2"
)

const manifestColumns = "id, project_id, version, entries, created_at"

// CreateManifest publishes the next manifest version for a project.
// Version assignment happens inside a transaction so concurrent publishes
// cannot produce duplicate versions; the UNIQUE(project_id, version)
// constraint backs this up.
func (s *SQLiteStore) CreateManifest(ctx context.Context, m types.NewManifest) (*types.Manifest, error) {
	entriesJSON, err := json.Marshal(m.Entries)
	if err != nil {
		return nil, fmt.Errorf("marshal entries: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM manifests WHERE project_id = ?",
		m.ProjectID).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("next manifest version: %w", err)
	}

	now := time.Now().UTC()
	manifest := types.Manifest{
		ID:        ulid.Make().String(),
		ProjectID: m.ProjectID,
		Version:   version,
		Entries:   m.Entries,
		CreatedAt: now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifests (id, project_id, version, entries, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, manifest.ID, manifest.ProjectID, manifest.Version, string(entriesJSON), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert manifest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &manifest, nil
}

// GetManifest retrieves a manifest by ID.
func (s *SQLiteStore) GetManifest(ctx context.Context, id string) (*types.Manifest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+manifestColumns+" FROM manifests WHERE id = ?", id)
	return scanManifest(row)
}

// GetManifestByVersion retrieves a specific manifest version for a project.
func (s *SQLiteStore) GetManifestByVersion(ctx context.Context, projectID string, version int64) (*types.Manifest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+manifestColumns+" FROM manifests WHERE project_id = ? AND version = ?",
		projectID, version)
	return scanManifest(row)
}

// ListManifests returns manifests for a project, newest version first.
func (s *SQLiteStore) ListManifests(ctx context.Context, projectID string) ([]types.Manifest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+manifestColumns+" FROM manifests WHERE project_id = ? ORDER BY version DESC",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query manifests: %w", err)
	}
	defer rows.Close()

	var manifests []types.Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, *m)
	}
	return manifests, rows.Err()
}

func scanManifest(scanner interface{ Scan(...any) error }) (*types.Manifest, error) {
	var m types.Manifest
	var entriesJSON, createdAt string

	err := scanner.Scan(&m.ID, &m.ProjectID, &m.Version, &entriesJSON, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	if err := json.Unmarshal([]byte(entriesJSON), &m.Entries); err != nil {
		return nil, fmt.Errorf("parse entries JSON: %w", err)
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}
