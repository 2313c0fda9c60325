// Package query filters and orders task sequences for the board views.
package query

import (
	"cmp"
	"net/url"
	"slices"
	"strings"
	"time"

	"taskboard/internal/models"
)

// SortKey selects the comparator used to order tasks.
type SortKey string

const (
	SortNone      SortKey = ""
	SortCreatedAt SortKey = "createdAt"
	SortDeadline  SortKey = "deadline"
	SortPriority  SortKey = "priority"
	SortStatus    SortKey = "status"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// All is the filter value that lets every task through. The empty string
// behaves the same way.
const All = "all"

// Unassigned as an assignee filter selects tasks without an assignee.
const Unassigned = "unassigned"

// Config holds the active filters and sort order. Filters are combined with
// AND semantics.
type Config struct {
	Status   string
	Priority string
	Project  string
	Assignee string
	Search   string
	// SearchDescription extends the text search from titles to descriptions.
	SearchDescription bool
	SortKey           SortKey
	Direction         Direction
}

var priorityRank = map[models.Priority]int{
	models.PriorityUrgent: 0,
	models.PriorityHigh:   1,
	models.PriorityMedium: 2,
	models.PriorityLow:    3,
}

// lowestPriorityRank is used for missing or unknown priorities.
const lowestPriorityRank = 4

var statusRank = map[models.Status]int{
	models.StatusTodo:       1,
	models.StatusInProgress: 2,
	models.StatusReview:     3,
	models.StatusDone:       4,
	models.StatusCompleted:  4,
}

// PriorityRank returns the rank of p, lower meaning more urgent.
func PriorityRank(p models.Priority) int {
	if r, ok := priorityRank[models.Priority(strings.ToUpper(string(p)))]; ok {
		return r
	}
	return lowestPriorityRank
}

// StatusRank returns the workflow position of s. Unknown statuses rank
// with TODO.
func StatusRank(s models.Status) int {
	return statusRank[s.Normalize()]
}

// Apply returns the tasks that pass every active filter, ordered by the
// configured sort key. The input slice is not modified and the sort is
// stable.
func Apply(tasks []*models.Task, cfg Config) []*models.Task {
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil && cfg.Matches(t) {
			out = append(out, t)
		}
	}
	Sort(out, cfg.SortKey, cfg.Direction)
	return out
}

// Matches reports whether t passes every active filter.
func (cfg Config) Matches(t *models.Task) bool {
	if active(cfg.Status) && models.Status(strings.ToUpper(cfg.Status)).Normalize() != t.Status.Normalize() {
		return false
	}
	if active(cfg.Priority) && !strings.EqualFold(cfg.Priority, string(t.Priority)) {
		return false
	}
	if active(cfg.Project) && cfg.Project != t.ProjectID {
		return false
	}
	if active(cfg.Assignee) {
		want := cfg.Assignee
		if strings.EqualFold(want, Unassigned) {
			want = ""
		}
		if models.CanonicalID(want) != t.AssigneeID() {
			return false
		}
	}
	if needle := strings.ToLower(strings.TrimSpace(cfg.Search)); needle != "" {
		hit := strings.Contains(strings.ToLower(t.Title), needle)
		if !hit && cfg.SearchDescription {
			hit = strings.Contains(strings.ToLower(t.Description), needle)
		}
		if !hit {
			return false
		}
	}
	return true
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// Sort orders tasks in place by key. Tasks that compare equal keep their
// relative order. Missing dates go last whichever way the sort runs. An
// unknown key leaves the order untouched.
func Sort(tasks []*models.Task, key SortKey, dir Direction) {
	if compare := comparator(key, dir == Desc); compare != nil {
		slices.SortStableFunc(tasks, compare)
	}
}

func comparator(key SortKey, desc bool) func(a, b *models.Task) int {
	flip := func(c int) int {
		if desc {
			return -c
		}
		return c
	}

	switch key {
	case SortCreatedAt:
		return func(a, b *models.Task) int {
			return compareDates(a.CreatedAt, b.CreatedAt, desc)
		}
	case SortDeadline:
		return func(a, b *models.Task) int {
			return compareDates(a.Deadline, b.Deadline, desc)
		}
	case SortPriority:
		return func(a, b *models.Task) int {
			return flip(cmp.Compare(PriorityRank(a.Priority), PriorityRank(b.Priority)))
		}
	case SortStatus:
		return func(a, b *models.Task) int {
			return flip(cmp.Compare(StatusRank(a.Status), StatusRank(b.Status)))
		}
	default:
		return nil
	}
}

func compareDates(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if desc {
		return b.Compare(*a)
	}
	return a.Compare(*b)
}

// ParseConfig reads a Config from request query parameters: status,
// priority, project, assignee, q, in_description, sort and dir.
func ParseConfig(values url.Values) Config {
	cfg := Config{
		Status:            values.Get("status"),
		Priority:          values.Get("priority"),
		Project:           values.Get("project"),
		Assignee:          values.Get("assignee"),
		Search:            values.Get("q"),
		SearchDescription: values.Get("in_description") == "true",
		SortKey:           SortKey(values.Get("sort")),
		Direction:         Asc,
	}
	if strings.EqualFold(values.Get("dir"), string(Desc)) {
		cfg.Direction = Desc
	}
	return cfg
}

// Values encodes cfg as query parameters understood by ParseConfig. Inactive
// filters are omitted.
func (cfg Config) Values() url.Values {
	values := url.Values{}
	set := func(key, v string) {
		if active(v) {
			values.Set(key, v)
		}
	}
	set("status", cfg.Status)
	set("priority", cfg.Priority)
	set("project", cfg.Project)
	set("assignee", cfg.Assignee)
	if cfg.Search != "" {
		values.Set("q", cfg.Search)
	}
	if cfg.SearchDescription {
		values.Set("in_description", "true")
	}
	if cfg.SortKey != SortNone {
		values.Set("sort", string(cfg.SortKey))
	}
	if cfg.Direction == Desc {
		values.Set("dir", string(Desc))
	}
	return values
}
