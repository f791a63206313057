package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/oklog/ulid/v2"
)

const voiceAssetColumns = "id, project_id, npc_id, filename, content_type, size_bytes, object_key, transcript, provider, created_at, updated_at, deleted_at"

// CreateVoiceAsset inserts a voice asset record. The caller is responsible
// for having stored the object under a.ObjectKey first. A pre-assigned ID
// is kept so the record matches the object key derived from it.
func (s *SQLiteStore) CreateVoiceAsset(ctx context.Context, a types.VoiceAsset) (*types.VoiceAsset, error) {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	var npcID any
	if a.NPCID != nil {
		npcID = *a.NPCID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voice_assets (id, project_id, npc_id, filename, content_type, size_bytes, object_key, transcript, provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ProjectID, npcID, a.Filename, a.ContentType, a.SizeBytes,
		a.ObjectKey, a.Transcript, a.Provider, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert voice asset: %w", err)
	}

	return &a, nil
}

// GetVoiceAsset retrieves a voice asset by ID.
func (s *SQLiteStore) GetVoiceAsset(ctx context.Context, id string) (*types.VoiceAsset, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+voiceAssetColumns+" FROM voice_assets WHERE id = ? AND deleted_at IS NULL", id)
	return scanVoiceAsset(row)
}

// ListVoiceAssets returns active voice assets, optionally scoped to a project.
func (s *SQLiteStore) ListVoiceAssets(ctx context.Context, projectID string) ([]types.VoiceAsset, error) {
	query := "SELECT " + voiceAssetColumns + " FROM voice_assets WHERE deleted_at IS NULL"
	args := []any{}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query voice assets: %w", err)
	}
	defer rows.Close()

	var assets []types.VoiceAsset
	for rows.Next() {
		a, err := scanVoiceAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// DeleteVoiceAsset soft-deletes a voice asset record.
// The stored object is left in place; object lifecycle is managed externally.
func (s *SQLiteStore) DeleteVoiceAsset(ctx context.Context, id string) error {
	return s.softDelete(ctx, "voice_assets", id)
}

func scanVoiceAsset(scanner interface{ Scan(...any) error }) (*types.VoiceAsset, error) {
	var a types.VoiceAsset
	var npcID sql.NullString
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := scanner.Scan(&a.ID, &a.ProjectID, &npcID, &a.Filename, &a.ContentType,
		&a.SizeBytes, &a.ObjectKey, &a.Transcript, &a.Provider, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan voice asset: %w", err)
	}

	if npcID.Valid {
		a.NPCID = &npcID.String
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	a.DeletedAt = parseNullTime(deletedAt)
	return &a, nil
}
