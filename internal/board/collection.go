// Package board holds the in-memory task collection a view works against.
package board

import "taskboard/internal/models"

// Collection is a keyed set of tasks. Stored *models.Task values are never
// modified in place: every change swaps in a new pointer for that key, so
// unrelated tasks keep their identity across updates.
//
// A Collection is not safe for concurrent use; the optimistic engine guards
// its own copy.
type Collection struct {
	byID  map[string]*models.Task
	order []string
}

// New builds a collection from tasks. Later duplicates replace earlier ones.
func New(tasks ...*models.Task) *Collection {
	c := &Collection{byID: make(map[string]*models.Task, len(tasks))}
	for _, t := range tasks {
		c.Upsert(t)
	}
	return c
}

// Upsert inserts t or replaces the task with the same identifier. The
// collection keeps its own copy of t. Tasks without an identifier are ignored.
func (c *Collection) Upsert(t *models.Task) {
	if t == nil || t.ID == "" {
		return
	}
	if c.byID == nil {
		c.byID = map[string]*models.Task{}
	}
	if _, exists := c.byID[t.ID]; !exists {
		c.order = append(c.order, t.ID)
	}
	c.byID[t.ID] = t.Clone()
}

// Patch merges p into the task with the given id, preserving every field the
// patch leaves unset. It returns the updated task, or false if id is unknown.
func (c *Collection) Patch(id string, p models.Patch) (*models.Task, bool) {
	current, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	updated := p.ApplyTo(current)
	updated.ID = id
	c.byID[id] = updated
	return updated, true
}

// Remove deletes the task with the given id. Unknown ids are ignored.
func (c *Collection) Remove(id string) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the task with the given id. The returned task must be treated
// as read-only.
func (c *Collection) Get(id string) (*models.Task, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Len returns the number of tasks.
func (c *Collection) Len() int {
	return len(c.byID)
}

// All returns every task. The order is stable between calls but carries no
// meaning; views impose their own.
func (c *Collection) All() []*models.Task {
	out := make([]*models.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Clone returns an independent collection sharing the same task values.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		byID:  make(map[string]*models.Task, len(c.byID)),
		order: append([]string(nil), c.order...),
	}
	for id, t := range c.byID {
		out.byID[id] = t
	}
	return out
}
