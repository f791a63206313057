package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/oklog/ulid/v2"
)

const projectColumns = "id, name, slug, description, genre, created_at, updated_at, deleted_at"

// CreateProject inserts a new project.
// Returns ErrDuplicateSlug if the slug is already taken.
func (s *SQLiteStore) CreateProject(ctx context.Context, p types.NewProject) (*types.Project, error) {
	now := time.Now().UTC()
	project := types.Project{
		ID:          ulid.Make().String(),
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Genre:       p.Genre,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, slug, description, genre, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, project.ID, project.Name, project.Slug, project.Description, project.Genre,
		formatTime(now), formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}

	return &project, nil
}

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ? AND deleted_at IS NULL", id)
	return scanProject(row)
}

// ListProjects returns all active projects ordered by creation time.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE deleted_at IS NULL ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProject replaces the mutable fields of a project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, id string, p types.NewProject) (*types.Project, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, slug = ?, description = ?, genre = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, p.Name, p.Slug, p.Description, p.Genre, formatTime(time.Now()), id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetProject(ctx, id)
}

// DeleteProject soft-deletes a project.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	return s.softDelete(ctx, "projects", id)
}

// softDelete marks a row deleted in any table with a deleted_at column.
func (s *SQLiteStore) softDelete(ctx context.Context, table, id string) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", table)
	result, err := s.db.ExecContext(ctx, query, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("soft delete from %s: %w", table, err)
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

func scanProject(scanner interface{ Scan(...any) error }) (*types.Project, error) {
	var p types.Project
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := scanner.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Genre,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.DeletedAt = parseNullTime(deletedAt)
	return &p, nil
}
