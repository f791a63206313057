package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/oklog/ulid/v2"
)

const npcColumns = "id, project_id, name, role, persona, dialogue_style, model_asset_id, voice_asset_id, created_at, updated_at, deleted_at"

// CreateNPC inserts a new NPC.
func (s *SQLiteStore) CreateNPC(ctx context.Context, n types.NewNPC) (*types.NPC, error) {
	now := time.Now().UTC()
	npc := types.NPC{
		ID:            ulid.Make().String(),
		ProjectID:     n.ProjectID,
		Name:          n.Name,
		Role:          n.Role,
		Persona:       n.Persona,
		DialogueStyle: n.DialogueStyle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO npcs (id, project_id, name, role, persona, dialogue_style, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, npc.ID, npc.ProjectID, npc.Name, npc.Role, npc.Persona, npc.DialogueStyle,
		formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert npc: %w", err)
	}

	return &npc, nil
}

// GetNPC retrieves an NPC by ID.
func (s *SQLiteStore) GetNPC(ctx context.Context, id string) (*types.NPC, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+npcColumns+" FROM npcs WHERE id = ? AND deleted_at IS NULL", id)
	return scanNPC(row)
}

// ListNPCs returns active NPCs, optionally scoped to a project.
func (s *SQLiteStore) ListNPCs(ctx context.Context, projectID string) ([]types.NPC, error) {
	query := "SELECT " + npcColumns + " FROM npcs WHERE deleted_at IS NULL"
	args := []any{}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query npcs: %w", err)
	}
	defer rows.Close()

	var npcs []types.NPC
	for rows.Next() {
		n, err := scanNPC(rows)
		if err != nil {
			return nil, err
		}
		npcs = append(npcs, *n)
	}
	return npcs, rows.Err()
}

// UpdateNPC replaces the mutable fields of an NPC.
// Asset references are managed separately via SetNPCAssets.
func (s *SQLiteStore) UpdateNPC(ctx context.Context, id string, n types.NewNPC) (*types.NPC, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE npcs
		SET name = ?, role = ?, persona = ?, dialogue_style = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, n.Name, n.Role, n.Persona, n.DialogueStyle, formatTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update npc: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if rows == 0 {
		return nil, ErrNotFound
	}
	return s.GetNPC(ctx, id)
}

// DeleteNPC soft-deletes an NPC.
func (s *SQLiteStore) DeleteNPC(ctx context.Context, id string) error {
	return s.softDelete(ctx, "npcs", id)
}

// SetNPCAssets updates the generated asset references on an NPC.
// A nil pointer leaves the corresponding column unchanged.
func (s *SQLiteStore) SetNPCAssets(ctx context.Context, id string, modelAssetID, voiceAssetID *string) error {
	if modelAssetID == nil && voiceAssetID == nil {
		return nil
	}

	query := "UPDATE npcs SET updated_at = ?"
	args := []any{formatTime(time.Now())}
	if modelAssetID != nil {
		query += ", model_asset_id = ?"
		args = append(args, *modelAssetID)
	}
	if voiceAssetID != nil {
		query += ", voice_asset_id = ?"
		args = append(args, *voiceAssetID)
	}
	query += " WHERE id = ? AND deleted_at IS NULL"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set npc assets: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNPC(scanner interface{ Scan(...any) error }) (*types.NPC, error) {
	var n types.NPC
	var modelAssetID, voiceAssetID sql.NullString
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := scanner.Scan(&n.ID, &n.ProjectID, &n.Name, &n.Role, &n.Persona,
		&n.DialogueStyle, &modelAssetID, &voiceAssetID, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan npc: %w", err)
	}

	if modelAssetID.Valid {
		n.ModelAssetID = &modelAssetID.String
	}
	if voiceAssetID.Valid {
		n.VoiceAssetID = &voiceAssetID.String
	}
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	n.DeletedAt = parseNullTime(deletedAt)
	return &n, nil
}
