package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const taskColumns = `id, project_id, title, description, status, priority, assigned_to, deadline,
        estimated_time, actual_time, created_at, updated_at`

// ListTasks returns tasks for the given project ordered by status and position.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
        FROM tasks WHERE project_id = ? ORDER BY status, position, created_at, rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new task for a project. Missing status and priority
// default to TODO and MEDIUM.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	if err := normalizeTask(&t); err != nil {
		return nil, err
	}
	if _, err := s.GetProject(ctx, t.ProjectID); err != nil {
		return nil, err
	}

	pos, err := s.nextPosition(ctx, t.ProjectID, t.Status)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks(id, project_id, title, description, status, priority, assigned_to,
            deadline, estimated_time, actual_time, position) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority), nullString(t.AssigneeID()),
		t.Deadline, t.EstimatedTime, t.ActualTime, pos)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task")
	}
	return t, err
}

// UpdateTask merges a partial update into the stored task and moves the task
// to the end of its new column when the status changes.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.Patch) (*models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.ApplyTo(current)
	if err := normalizeTask(updated); err != nil {
		return nil, err
	}

	var position sql.NullInt64
	if updated.Status != current.Status {
		pos, err := s.nextPosition(ctx, current.ProjectID, updated.Status)
		if err != nil {
			return nil, err
		}
		position = sql.NullInt64{Int64: pos, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, assigned_to = ?,
            deadline = ?, estimated_time = ?, actual_time = ?, position = COALESCE(?, position),
            updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		updated.Title, updated.Description, string(updated.Status), string(updated.Priority), nullString(updated.AssigneeID()),
		updated.Deadline, updated.EstimatedTime, updated.ActualTime, position, id)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("task")
	}
	return nil
}

func (s *Store) nextPosition(ctx context.Context, projectID string, status models.Status) (int64, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ? AND status = ?`, projectID, string(status)).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return position.Int64 + 1, nil
	}
	return 0, nil
}

// normalizeTask trims and validates a task before it is written. Statuses
// are stored as their workflow stage, so COMPLETED is written as DONE.
func normalizeTask(t *models.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Title == "" {
		return invalid("task title must not be empty")
	}

	if t.Status == "" {
		t.Status = models.StatusTodo
	}
	if !t.Status.Valid() {
		return invalid("unknown status %q", t.Status)
	}
	t.Status = t.Status.Normalize()

	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !t.Priority.Valid() {
		return invalid("unknown priority %q", t.Priority)
	}

	for _, v := range []*float64{t.EstimatedTime, t.ActualTime} {
		if v != nil && *v < 0 {
			return invalid("time values must not be negative")
		}
	}
	return nil
}

func scanTask(row scanner) (*models.Task, error) {
	var (
		t                    models.Task
		status, priority     string
		assignee             sql.NullString
		deadline             sql.NullTime
		estimated, actual    sql.NullFloat64
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &priority, &assignee, &deadline,
		&estimated, &actual, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Status = models.Status(status)
	t.Priority = models.Priority(priority)
	if assignee.Valid && assignee.String != "" {
		t.AssignedTo = models.Ref(assignee.String)
	}
	t.Deadline = timePtr(deadline)
	if estimated.Valid {
		t.EstimatedTime = &estimated.Float64
	}
	if actual.Valid {
		t.ActualTime = &actual.Float64
	}
	t.CreatedAt = &createdAt
	t.UpdatedAt = &updatedAt
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
