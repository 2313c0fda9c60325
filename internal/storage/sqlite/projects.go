package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const projectColumns = `id, workspace_id, name, description, color, created_at, updated_at`

// ListProjects retrieves the projects of a workspace ordered by creation date.
func (s *Store) ListProjects(ctx context.Context, workspaceID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE workspace_id = ? ORDER BY created_at ASC, rowid ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project with optional color.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Project{}, invalid("project name must not be empty")
	}
	if p.Color == "" {
		p.Color = randomPaletteColor()
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(id, workspace_id, name, description, color) VALUES(?, ?, ?, ?, ?)`,
		id, p.WorkspaceID, name, strings.TrimSpace(p.Description), p.Color)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return models.Project{}, fmt.Errorf("%w: project %q already exists", ErrConflict, name)
		}
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, notFound("project")
	}
	return p, err
}

// UpdateProject renames a project and optionally changes its description and color.
func (s *Store) UpdateProject(ctx context.Context, id, name, description, color string) (models.Project, error) {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = current.Name
	}
	if color == "" {
		color = current.Color
	}

	_, err = s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(name), strings.TrimSpace(description), color, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("project")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (models.Project, error) {
	var (
		p                    models.Project
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Color, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, err
		}
		return models.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.CreatedAt = &createdAt
	p.UpdatedAt = &updatedAt
	return p, nil
}

func randomPaletteColor() string {
	palette := []string{
		"#2563eb", // blue-600
		"#7c3aed", // violet-600
		"#dc2626", // red-600
		"#059669", // green-600
		"#ea580c", // orange-600
		"#d97706", // amber-600
		"#0ea5e9", // sky-500
	}
	return palette[rand.Intn(len(palette))]
}
