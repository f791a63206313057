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

const questColumns = "id, project_id, title, summary, status, prerequisite_ids, reward, created_at, updated_at, deleted_at"

// CreateQuest inserts a new quest. Status defaults to draft.
func (s *SQLiteStore) CreateQuest(ctx context.Context, q types.NewQuest) (*types.Quest, error) {
	now := time.Now().UTC()
	status := q.Status
	if status == "" {
		status = types.QuestDraft
	}
	prereqs := q.PrerequisiteIDs
	if prereqs == nil {
		prereqs = []string{}
	}
	prereqJSON, err := json.Marshal(prereqs)
	if err != nil {
		return nil, fmt.Errorf("marshal prerequisites: %w", err)
	}

	quest := types.Quest{
		ID:              ulid.Make().String(),
		ProjectID:       q.ProjectID,
		Title:           q.Title,
		Summary:         q.Summary,
		Status:          status,
		PrerequisiteIDs: prereqs,
		Reward:          q.Reward,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quests (id, project_id, title, summary, status, prerequisite_ids, reward, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quest.ID, quest.ProjectID, quest.Title, quest.Summary, string(quest.Status),
		string(prereqJSON), quest.Reward, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert quest: %w", err)
	}

	return &quest, nil
}

// GetQuest retrieves a quest by ID.
func (s *SQLiteStore) GetQuest(ctx context.Context, id string) (*types.Quest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+questColumns+" FROM quests WHERE id = ? AND deleted_at IS NULL", id)
	return scanQuest(row)
}

// ListQuests returns active quests, optionally scoped to a project.
func (s *SQLiteStore) ListQuests(ctx context.Context, projectID string) ([]types.Quest, error) {
	query := "SELECT " + questColumns + " FROM quests WHERE deleted_at IS NULL"
	args := []any{}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	defer rows.Close()

	var quests []types.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

// UpdateQuest replaces the mutable fields of a quest.
func (s *SQLiteStore) UpdateQuest(ctx context.Context, id string, q types.NewQuest) (*types.Quest, error) {
	status := q.Status
	if status == "" {
		status = types.QuestDraft
	}
	prereqs := q.PrerequisiteIDs
	if prereqs == nil {
		prereqs = []string{}
	}
	prereqJSON, err := json.Marshal(prereqs)
	if err != nil {
		return nil, fmt.Errorf("marshal prerequisites: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE quests
		SET title = ?, summary = ?, status = ?, prerequisite_ids = ?, reward = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, q.Title, q.Summary, string(status), string(prereqJSON), q.Reward,
		formatTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update quest: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetQuest(ctx, id)
}

// DeleteQuest soft-deletes a quest.
func (s *SQLiteStore) DeleteQuest(ctx context.Context, id string) error {
	return s.softDelete(ctx, "quests", id)
}

func scanQuest(scanner interface{ Scan(...any) error }) (*types.Quest, error) {
	var q types.Quest
	var status, prereqJSON string
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := scanner.Scan(&q.ID, &q.ProjectID, &q.Title, &q.Summary, &status,
		&prereqJSON, &q.Reward, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan quest: %w", err)
	}

	q.Status = types.QuestStatus(status)
	if err := json.Unmarshal([]byte(prereqJSON), &q.PrerequisiteIDs); err != nil {
		return nil, fmt.Errorf("parse prerequisites JSON: %w", err)
	}
	q.CreatedAt = parseTime(createdAt)
	q.UpdatedAt = parseTime(updatedAt)
	q.DeletedAt = parseNullTime(deletedAt)
	return &q, nil
}
