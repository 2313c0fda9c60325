// Package view derives the read-only board structures a page renders: the
// Kanban columns, the per-assignee buckets and the flat list.
//
// Every projection is recomputed from its inputs on each call. Nothing is
// cached and the input tasks are never modified.
package view

import (
	"math"

	"taskboard/internal/models"
	"taskboard/internal/query"
)

// Column is one Kanban column.
type Column struct {
	Status models.Status  `json:"status"`
	Tasks  []*models.Task `json:"tasks"`
	Count  int            `json:"count"`
}

// Bucket groups the tasks of one assignee. Member is nil for the
// Unassigned bucket.
type Bucket struct {
	Member         *models.MemberRef `json:"member"`
	Label          string            `json:"label"`
	Tasks          []*models.Task    `json:"tasks"`
	Total          int               `json:"total"`
	Completed      int               `json:"completed"`
	CompletionRate int               `json:"completion_rate"`
}

// UnassignedLabel names the bucket of tasks without an assignee.
const UnassignedLabel = "Unassigned"

// Options tunes the grouped projection.
type Options struct {
	// HideEmpty drops member buckets without tasks. The Unassigned bucket
	// is always kept.
	HideEmpty bool
}

// Board bundles all three projections of one filtered, sorted sequence.
type Board struct {
	List      []*models.Task `json:"list"`
	Kanban    []Column       `json:"kanban"`
	Assignees []Bucket       `json:"assignees"`
}

// Compute filters and sorts tasks with cfg and derives every projection
// from the result.
func Compute(tasks []*models.Task, cfg query.Config, ws *models.Workspace, opts Options) Board {
	list := query.Apply(tasks, cfg)
	return Board{
		List:      list,
		Kanban:    Kanban(list),
		Assignees: ByAssignee(list, ws, opts),
	}
}

// Kanban partitions tasks into the fixed board columns. Unknown statuses land
// in TODO and COMPLETED lands in DONE. Task order within a column follows
// the input.
func Kanban(tasks []*models.Task) []Column {
	columns := make([]Column, len(models.BoardStatuses))
	index := make(map[models.Status]int, len(models.BoardStatuses))
	for i, s := range models.BoardStatuses {
		columns[i] = Column{Status: s, Tasks: []*models.Task{}}
		index[s] = i
	}

	for _, t := range tasks {
		i := index[t.Status.Normalize()]
		columns[i].Tasks = append(columns[i].Tasks, t)
		columns[i].Count++
	}
	return columns
}

// ByAssignee buckets tasks by assignee. The workspace owner comes first,
// then members in workspace order, then assignees outside the workspace in
// first-seen order, and Unassigned last.
func ByAssignee(tasks []*models.Task, ws *models.Workspace, opts Options) []Bucket {
	var buckets []Bucket
	index := map[string]int{}

	for _, m := range ws.KnownMembers() {
		ref := m
		index[ref.String()] = len(buckets)
		buckets = append(buckets, Bucket{Member: &ref, Label: memberLabel(ref), Tasks: []*models.Task{}})
	}

	unassigned := Bucket{Label: UnassignedLabel, Tasks: []*models.Task{}}

	for _, t := range tasks {
		id := t.AssigneeID()
		if id == "" {
			unassigned.Tasks = append(unassigned.Tasks, t)
			continue
		}
		i, ok := index[id]
		if !ok {
			ref := *t.AssignedTo
			i = len(buckets)
			index[id] = i
			buckets = append(buckets, Bucket{Member: &ref, Label: memberLabel(ref), Tasks: []*models.Task{}})
		}
		buckets[i].Tasks = append(buckets[i].Tasks, t)
	}

	out := make([]Bucket, 0, len(buckets)+1)
	for _, b := range buckets {
		if opts.HideEmpty && len(b.Tasks) == 0 {
			continue
		}
		out = append(out, summarize(b))
	}
	return append(out, summarize(unassigned))
}

func summarize(b Bucket) Bucket {
	b.Total = len(b.Tasks)
	b.Completed = 0
	for _, t := range b.Tasks {
		if t.Status.IsDone() {
			b.Completed++
		}
	}
	b.CompletionRate = CompletionRate(b.Completed, b.Total)
	return b
}

// CompletionRate returns done/total as a whole percentage, 0 when total is 0.
func CompletionRate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

func memberLabel(m models.MemberRef) string {
	if m.Name != "" {
		return m.Name
	}
	if m.Email != "" {
		return m.Email
	}
	return m.String()
}
