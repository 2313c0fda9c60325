package models

import (
	"strings"
	"time"
)

// Status is the workflow stage of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusDone       Status = "DONE"
	// StatusCompleted is accepted from older clients and means the same as DONE.
	StatusCompleted Status = "COMPLETED"
)

// BoardStatuses lists the workflow stages in board column order.
var BoardStatuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Normalize maps a status onto its workflow stage. COMPLETED becomes DONE and
// anything unrecognized becomes TODO.
func (s Status) Normalize() Status {
	switch Status(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case StatusInProgress:
		return StatusInProgress
	case StatusReview:
		return StatusReview
	case StatusDone, StatusCompleted:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Valid reports whether s is one of the accepted status values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone, StatusCompleted:
		return true
	}
	return false
}

// IsDone reports whether s counts as finished work.
func (s Status) IsDone() bool {
	return s.Normalize() == StatusDone
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether p is one of the accepted priority values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Project groups tasks inside a workspace.
type Project struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Task represents a single card on the board. Values are treated as
// immutable once shared: updates produce a new Task.
type Task struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	AssignedTo    *MemberRef `json:"assigned_to"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	EstimatedTime *float64   `json:"estimated_time,omitempty"`
	ActualTime    *float64   `json:"actual_time,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// AssigneeID returns the canonical identifier of the assignee, or "" when
// the task is unassigned.
func (t *Task) AssigneeID() string {
	if t == nil || t.AssignedTo == nil {
		return ""
	}
	return t.AssignedTo.String()
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.AssignedTo != nil {
		ref := *t.AssignedTo
		c.AssignedTo = &ref
	}
	c.Deadline = cloneTime(t.Deadline)
	c.CreatedAt = cloneTime(t.CreatedAt)
	c.UpdatedAt = cloneTime(t.UpdatedAt)
	c.EstimatedTime = cloneFloat(t.EstimatedTime)
	c.ActualTime = cloneFloat(t.ActualTime)
	return &c
}

// Patch is a partial task update. Nil fields are left unchanged. An
// AssignedTo with an empty ID clears the assignee and a zero Deadline clears
// the deadline.
type Patch struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	Priority      *Priority  `json:"priority,omitempty"`
	AssignedTo    *MemberRef `json:"assigned_to,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	EstimatedTime *float64   `json:"estimated_time,omitempty"`
	ActualTime    *float64   `json:"actual_time,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.AssignedTo == nil && p.Deadline == nil && p.EstimatedTime == nil && p.ActualTime == nil
}

// ApplyTo returns a copy of t with the patch merged in. t itself is not modified.
func (p Patch) ApplyTo(t *Task) *Task {
	out := t.Clone()
	if out == nil {
		out = &Task{}
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.AssignedTo != nil {
		if p.AssignedTo.IsZero() {
			out.AssignedTo = nil
		} else {
			ref := *p.AssignedTo
			out.AssignedTo = &ref
		}
	}
	if p.Deadline != nil {
		if p.Deadline.IsZero() {
			out.Deadline = nil
		} else {
			out.Deadline = cloneTime(p.Deadline)
		}
	}
	if p.EstimatedTime != nil {
		out.EstimatedTime = cloneFloat(p.EstimatedTime)
	}
	if p.ActualTime != nil {
		out.ActualTime = cloneFloat(p.ActualTime)
	}
	return out
}

// StatusPatch builds the patch issued by a drag between board columns.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
