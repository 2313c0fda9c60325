// Package optimistic applies task mutations locally before the server has
// confirmed them, then reconciles with the server's answer or rolls back.
//
// Mutations on the same task are not queued. Each one applies on top of the
// current local state and is tracked on its own; a confirmation that arrives
// after a newer mutation touched the task is discarded instead of
// overwriting the newer state.
package optimistic

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

// Kind names the type of a mutation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Mutation is what a Confirmer is asked to make authoritative.
type Mutation struct {
	Kind   Kind
	TaskID string
	Patch  models.Patch
	// Task is set for creates and carries the full new record.
	Task *models.Task
}

// Confirmer performs the authoritative version of a mutation, typically a
// REST call. It returns the canonical task for creates and updates; deletes
// may return nil.
type Confirmer interface {
	Confirm(ctx context.Context, m Mutation) (*models.Task, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, m Mutation) (*models.Task, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, m Mutation) (*models.Task, error) {
	return f(ctx, m)
}

// Engine owns a task collection and runs optimistic mutations against it.
// It is safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	tasks     *board.Collection
	revs      map[string]uint64
	pending   map[string]int
	creating  map[string]bool
	confirmer Confirmer
	logger    *slog.Logger
	onSettled func(Record, error)
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for rollbacks and discarded confirmations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSettledHook registers fn to run when a mutation settles, before its
// ticket is released. It runs on the confirmation goroutine, outside the
// engine lock.
func WithSettledHook(fn func(Record, error)) Option {
	return func(e *Engine) {
		e.onSettled = fn
	}
}

// WithIDGenerator replaces the generator for temporary ids of created tasks.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates an engine over a copy of initial.
func NewEngine(confirmer Confirmer, initial *board.Collection, opts ...Option) *Engine {
	if initial == nil {
		initial = board.New()
	}
	e := &Engine{
		tasks:     initial.Clone(),
		revs:      map[string]uint64{},
		pending:   map[string]int{},
		creating:  map[string]bool{},
		confirmer: confirmer,
		logger:    slog.Default(),
		newID:     func() string { return "tmp-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns an independent copy of the current local collection.
func (e *Engine) Snapshot() *board.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.Clone()
}

// Get returns the current local version of a task.
func (e *Engine) Get(id string) (*models.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.Get(id)
}

// Pending reports whether the task has an unconfirmed mutation.
func (e *Engine) Pending(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[id] > 0
}

// Reset replaces the local collection, for example after a fresh fetch.
// Confirmations still in flight become stale and are discarded.
func (e *Engine) Reset(tasks ...*models.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tasks.All() {
		e.revs[t.ID]++
	}
	e.tasks = board.New(tasks...)
	for _, t := range e.tasks.All() {
		e.revs[t.ID]++
	}
}

// Update merges patch into the task locally and confirms it. A task whose
// create is still unconfirmed cannot be updated yet.
func (e *Engine) Update(ctx context.Context, id string, patch models.Patch) *Ticket {
	e.mu.Lock()
	t, ok := e.applyUpdate(id, patch)
	e.mu.Unlock()
	if ok {
		go e.confirm(ctx, t, Mutation{Kind: KindUpdate, TaskID: id, Patch: patch})
	}
	return t
}

// Move is the drag-and-drop status change. Dropping a task back into the
// column it came from settles immediately without a confirmation call.
func (e *Engine) Move(ctx context.Context, id string, to models.Status) *Ticket {
	e.mu.Lock()
	current, ok := e.tasks.Get(id)
	if ok && !e.creating[id] && current.Status.Normalize() == to.Normalize() {
		e.mu.Unlock()
		return settledTicket(Record{
			Kind:     KindUpdate,
			TaskID:   id,
			Previous: current,
			Applied:  current,
			State:    StateConfirmed,
		})
	}
	patch := models.StatusPatch(to)
	t, ok := e.applyUpdate(id, patch)
	e.mu.Unlock()
	if ok {
		go e.confirm(ctx, t, Mutation{Kind: KindUpdate, TaskID: id, Patch: patch})
	}
	return t
}

// applyUpdate patches the task locally and tracks the mutation. It returns
// an already settled ticket and false when nothing was applied. Callers hold
// e.mu.
func (e *Engine) applyUpdate(id string, patch models.Patch) (*Ticket, bool) {
	previous, ok := e.tasks.Get(id)
	if !ok {
		return failedTicket(KindUpdate, id, ErrNotFound, ErrNotFound), false
	}
	if e.creating[id] {
		return failedTicket(KindUpdate, id, ErrRejected, ErrCreatePending), false
	}
	applied, _ := e.tasks.Patch(id, patch)
	return e.track(KindUpdate, id, previous, applied), true
}

// Create adds task locally under a temporary id, unless it already carries
// one, and confirms it. On success the temporary entry is replaced by the
// canonical record under its server-assigned id.
func (e *Engine) Create(ctx context.Context, task models.Task) *Ticket {
	if task.ID == "" {
		task.ID = e.newID()
	}

	e.mu.Lock()
	if _, exists := e.tasks.Get(task.ID); exists {
		e.mu.Unlock()
		return failedTicket(KindCreate, task.ID, ErrRejected, ErrRejected)
	}
	e.tasks.Upsert(&task)
	applied, _ := e.tasks.Get(task.ID)
	t := e.track(KindCreate, task.ID, nil, applied)
	e.creating[task.ID] = true
	e.mu.Unlock()

	go e.confirm(ctx, t, Mutation{Kind: KindCreate, TaskID: task.ID, Task: applied.Clone()})
	return t
}

// Delete removes the task locally and confirms the removal. Like Update, it
// refuses tasks whose create is still unconfirmed.
func (e *Engine) Delete(ctx context.Context, id string) *Ticket {
	e.mu.Lock()
	previous, ok := e.tasks.Get(id)
	if !ok {
		e.mu.Unlock()
		return failedTicket(KindDelete, id, ErrNotFound, ErrNotFound)
	}
	if e.creating[id] {
		e.mu.Unlock()
		return failedTicket(KindDelete, id, ErrRejected, ErrCreatePending)
	}
	e.tasks.Remove(id)
	t := e.track(KindDelete, id, previous, nil)
	e.mu.Unlock()

	go e.confirm(ctx, t, Mutation{Kind: KindDelete, TaskID: id})
	return t
}

// track records a freshly applied mutation. Callers hold e.mu.
func (e *Engine) track(kind Kind, id string, previous, applied *models.Task) *Ticket {
	prevRev := e.revs[id]
	e.revs[id]++
	e.pending[id]++
	t := newTicket(Record{
		Kind:     kind,
		TaskID:   id,
		Previous: previous,
		Applied:  applied,
		State:    StatePending,
	}, e.revs[id])
	t.prevRev = prevRev
	return t
}

func (e *Engine) confirm(ctx context.Context, t *Ticket, m Mutation) {
	canonical, err := e.confirmer.Confirm(ctx, m)
	record, surfaced := e.reconcile(t, canonical, err)

	if e.onSettled != nil {
		e.onSettled(record, surfaced)
	}
	t.settle(record, surfaced)
}

// reconcile folds a confirmation result into the local collection and
// returns the final record and the error to surface, if any.
func (e *Engine) reconcile(t *Ticket, canonical *models.Task, err error) (Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	record := t.Record()
	id := record.TaskID

	e.pending[id]--
	if e.pending[id] <= 0 {
		delete(e.pending, id)
	}
	if record.Kind == KindCreate {
		delete(e.creating, id)
	}
	stale := e.revs[id] != t.rev

	if err == nil {
		return e.reconcileSuccess(record, canonical, stale), nil
	}

	class := Classify(err)
	surfaced := &Error{Kind: record.Kind, TaskID: id, Class: class, Err: err}

	switch {
	case errors.Is(class, ErrNotFound):
		e.tasks.Remove(id)
		e.revs[id]++
		record.State = StateRolledBack
	case stale && record.Kind != KindCreate:
		record.State = StateSuperseded
		e.logger.Debug("rollback skipped, task changed since mutation",
			slog.String("task", id),
			slog.String("kind", string(record.Kind)),
			slog.String("error", err.Error()))
		return record, surfaced
	default:
		if record.Previous == nil {
			e.tasks.Remove(id)
		} else {
			e.tasks.Upsert(record.Previous)
		}
		// The task is back on the state the previous mutation applied, so
		// that mutation's confirmation must still count as current.
		e.revs[id] = t.prevRev
		record.State = StateRolledBack
	}

	e.logger.Warn("mutation rolled back",
		slog.String("task", id),
		slog.String("kind", string(record.Kind)),
		slog.String("error", err.Error()))
	return record, surfaced
}

func (e *Engine) reconcileSuccess(record Record, canonical *models.Task, stale bool) Record {
	id := record.TaskID

	if record.Kind == KindCreate {
		// The temporary entry is swapped for the server record unless the
		// task was removed locally in the meantime.
		if _, ok := e.tasks.Get(id); ok && canonical != nil && canonical.ID != "" {
			e.tasks.Remove(id)
			delete(e.revs, id)
			e.tasks.Upsert(canonical)
			e.revs[canonical.ID]++
		}
		record.Confirmed = canonical
		record.State = StateConfirmed
		return record
	}

	if stale {
		e.logger.Debug("confirmation discarded",
			slog.String("task", id),
			slog.String("kind", string(record.Kind)),
			slog.String("reason", ErrStaleConfirmation.Error()))
		record.Confirmed = canonical
		record.State = StateSuperseded
		return record
	}

	if record.Kind == KindUpdate && canonical != nil {
		c := canonical.Clone()
		c.ID = id
		e.tasks.Upsert(c)
		e.revs[id]++
	}
	record.Confirmed = canonical
	record.State = StateConfirmed
	return record
}
