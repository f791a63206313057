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

const loreColumns = "id, project_id, title, content, category, tags, embedding, embedding_status, created_at, updated_at, deleted_at"

// CreateLore inserts a single lore entry with pending embedding status.
func (s *SQLiteStore) CreateLore(ctx context.Context, l types.NewLoreEntry) (*types.LoreEntry, error) {
	ids, err := s.CreateLoreBatch(ctx, []types.NewLoreEntry{l})
	if err != nil {
		return nil, err
	}
	return s.GetLore(ctx, ids[0])
}

// CreateLoreBatch inserts lore entries in a single transaction.
// All entries are written with embedding_status 'pending'; the embedding
// coordinator picks them up asynchronously.
func (s *SQLiteStore) CreateLoreBatch(ctx context.Context, entries []types.NewLoreEntry) ([]string, error) {
	if len(entries) == 0 {
		return []string{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lore_entries (id, project_id, title, content, category, tags, embedding, embedding_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 'pending', ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	nowStr := formatTime(time.Now())
	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		id := ulid.Make().String()
		tags := entry.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, id, entry.ProjectID, entry.Title,
			entry.Content, string(entry.Category), string(tagsJSON), nowStr, nowStr); err != nil {
			return nil, fmt.Errorf("insert lore entry: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return ids, nil
}

// GetLore retrieves a lore entry by ID.
func (s *SQLiteStore) GetLore(ctx context.Context, id string) (*types.LoreEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+loreColumns+" FROM lore_entries WHERE id = ? AND deleted_at IS NULL", id)
	return scanLore(row)
}

// ListLore returns active lore entries, optionally scoped to a project.
func (s *SQLiteStore) ListLore(ctx context.Context, projectID string) ([]types.LoreEntry, error) {
	query := "SELECT " + loreColumns + " FROM lore_entries WHERE deleted_at IS NULL"
	args := []any{}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	return s.queryLore(ctx, query, args...)
}

// UpdateLore replaces the content fields of a lore entry and resets its
// embedding to pending so the coordinator regenerates it.
func (s *SQLiteStore) UpdateLore(ctx context.Context, id string, l types.NewLoreEntry) (*types.LoreEntry, error) {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE lore_entries
		SET title = ?, content = ?, category = ?, tags = ?,
		    embedding = NULL, embedding_status = 'pending', updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, l.Title, l.Content, string(l.Category), string(tagsJSON),
		formatTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update lore entry: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetLore(ctx, id)
}

// DeleteLore soft-deletes a lore entry.
func (s *SQLiteStore) DeleteLore(ctx context.Context, id string) error {
	return s.softDelete(ctx, "lore_entries", id)
}

// GetPendingLoreEmbeddings retrieves entries that need embedding generation.
func (s *SQLiteStore) GetPendingLoreEmbeddings(ctx context.Context, limit int) ([]types.LoreEntry, error) {
	return s.queryLore(ctx, `
		SELECT `+loreColumns+` FROM lore_entries
		WHERE embedding_status = 'pending' AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT ?
	`, limit)
}

// UpdateLoreEmbedding stores the embedding for a lore entry and marks it complete.
func (s *SQLiteStore) UpdateLoreEmbedding(ctx context.Context, id string, embedding []float32) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE lore_entries
		SET embedding = ?, embedding_status = 'complete', updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, packEmbedding(embedding), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
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

// MarkLoreEmbeddingFailed marks a lore entry as permanently failed.
func (s *SQLiteStore) MarkLoreEmbeddingFailed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE lore_entries
		SET embedding_status = 'failed', updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark embedding failed: %w", err)
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

// ListEmbeddedLore returns entries with complete embeddings, optionally
// scoped to a project. Used by the local vector index and the reindex command.
func (s *SQLiteStore) ListEmbeddedLore(ctx context.Context, projectID string) ([]types.LoreEntry, error) {
	query := "SELECT " + loreColumns + " FROM lore_entries WHERE embedding_status = 'complete' AND deleted_at IS NULL"
	args := []any{}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	return s.queryLore(ctx, query, args...)
}

func (s *SQLiteStore) queryLore(ctx context.Context, query string, args ...any) ([]types.LoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lore entries: %w", err)
	}
	defer rows.Close()

	var entries []types.LoreEntry
	for rows.Next() {
		entry, err := scanLore(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanLore(scanner interface{ Scan(...any) error }) (*types.LoreEntry, error) {
	var l types.LoreEntry
	var category, tagsJSON string
	var embeddingBlob []byte
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := scanner.Scan(&l.ID, &l.ProjectID, &l.Title, &l.Content, &category,
		&tagsJSON, &embeddingBlob, &l.EmbeddingStatus, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan lore entry: %w", err)
	}

	l.Category = types.LoreCategory(category)
	if err := json.Unmarshal([]byte(tagsJSON), &l.Tags); err != nil {
		return nil, fmt.Errorf("parse tags JSON: %w", err)
	}
	if len(embeddingBlob) > 0 {
		l.Embedding = unpackEmbedding(embeddingBlob)
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	l.DeletedAt = parseNullTime(deletedAt)
	return &l, nil
}
