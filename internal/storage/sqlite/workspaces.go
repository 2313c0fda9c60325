package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// CreateWorkspace persists a new workspace owned by ownerID.
func (s *Store) CreateWorkspace(ctx context.Context, name, description, ownerID string) (models.Workspace, error) {
	name = strings.TrimSpace(name)
	ownerID = strings.TrimSpace(ownerID)
	if name == "" {
		return models.Workspace{}, invalid("workspace name must not be empty")
	}
	if ownerID == "" {
		return models.Workspace{}, invalid("workspace owner must not be empty")
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO workspaces(id, name, description, owner_id) VALUES(?, ?, ?, ?)`,
		id, name, strings.TrimSpace(description), ownerID)
	if err != nil {
		return models.Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	s.logger.Info("workspace created", slog.String("workspace", id), slog.String("owner", ownerID))
	return s.GetWorkspace(ctx, id)
}

// GetWorkspace fetches a workspace with its members in the order they joined.
func (s *Store) GetWorkspace(ctx context.Context, id string) (models.Workspace, error) {
	var (
		w                    models.Workspace
		ownerID              string
		createdAt, updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description, owner_id, created_at, updated_at FROM workspaces WHERE id = ?`, id).
		Scan(&w.ID, &w.Name, &w.Description, &ownerID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workspace{}, notFound("workspace")
	}
	if err != nil {
		return models.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	w.Owner = models.Ref(ownerID)
	w.CreatedAt = &createdAt
	w.UpdatedAt = &updatedAt

	rows, err := s.db.QueryContext(ctx, `SELECT member_id, role FROM memberships WHERE workspace_id = ? ORDER BY created_at, rowid`, id)
	if err != nil {
		return models.Workspace{}, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	w.Members = []models.Membership{}
	for rows.Next() {
		var m models.Membership
		var memberID, role string
		if err := rows.Scan(&memberID, &role); err != nil {
			return models.Workspace{}, fmt.Errorf("scan member: %w", err)
		}
		m.Member = models.MemberRef{ID: memberID}
		m.Role = models.Role(role)
		w.Members = append(w.Members, m)
	}
	return w, rows.Err()
}

// AddMember grants memberID a role in the workspace. The owner role cannot
// be granted and a member can only be listed once.
func (s *Store) AddMember(ctx context.Context, workspaceID, memberID string, role models.Role) (models.Workspace, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return models.Workspace{}, invalid("member id must not be empty")
	}
	if !role.Valid() || role == models.RoleOwner {
		return models.Workspace{}, invalid("role %q cannot be granted", role)
	}

	ws, err := s.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return models.Workspace{}, err
	}
	if ws.OwnerID() == memberID {
		return models.Workspace{}, fmt.Errorf("%w: member already owns the workspace", ErrConflict)
	}
	for _, m := range ws.Members {
		if m.Member.String() == memberID {
			return models.Workspace{}, fmt.Errorf("%w: member already belongs to the workspace", ErrConflict)
		}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO memberships(workspace_id, member_id, role) VALUES(?, ?, ?)`, workspaceID, memberID, string(role))
	if err != nil {
		return models.Workspace{}, fmt.Errorf("insert membership: %w", err)
	}
	return s.GetWorkspace(ctx, workspaceID)
}

// RemoveMember drops a membership. Tasks assigned to the member keep their
// assignee.
func (s *Store) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memberships WHERE workspace_id = ? AND member_id = ?`, workspaceID, memberID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("member")
	}
	return nil
}

// WorkspaceForProject returns the workspace a project belongs to.
func (s *Store) WorkspaceForProject(ctx context.Context, projectID string) (models.Workspace, error) {
	var workspaceID string
	err := s.db.QueryRowContext(ctx, `SELECT workspace_id FROM projects WHERE id = ?`, projectID).Scan(&workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workspace{}, notFound("project")
	}
	if err != nil {
		return models.Workspace{}, fmt.Errorf("project workspace: %w", err)
	}
	return s.GetWorkspace(ctx, workspaceID)
}

// WorkspaceForTask returns the workspace a task belongs to.
func (s *Store) WorkspaceForTask(ctx context.Context, taskID string) (models.Workspace, error) {
	var workspaceID string
	err := s.db.QueryRowContext(ctx, `SELECT p.workspace_id FROM tasks t JOIN projects p ON p.id = t.project_id WHERE t.id = ?`, taskID).
		Scan(&workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workspace{}, notFound("task")
	}
	if err != nil {
		return models.Workspace{}, fmt.Errorf("task workspace: %w", err)
	}
	return s.GetWorkspace(ctx, workspaceID)
}
