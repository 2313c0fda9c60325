package optimistic

import (
	"context"
	"sync"

	"taskboard/internal/models"
)

// State is the lifecycle position of a mutation.
type State string

const (
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolledBack"
	// StateSuperseded means a newer mutation touched the task before this
	// one settled, so its outcome was not applied.
	StateSuperseded State = "superseded"
)

// Record describes one optimistic mutation.
type Record struct {
	Kind   Kind
	TaskID string
	// Previous is the task before the mutation; nil for creates.
	Previous *models.Task
	// Applied is the optimistic task; nil for deletes.
	Applied *models.Task
	// Confirmed is the canonical task returned by the server, if any.
	Confirmed *models.Task
	State     State
}

// Ticket tracks a submitted mutation until its confirmation settles.
type Ticket struct {
	mu      sync.Mutex
	record  Record
	err     error
	rev     uint64
	// prevRev is the task revision before this mutation applied.
	prevRev uint64
	done    chan struct{}
}

func newTicket(r Record, rev uint64) *Ticket {
	return &Ticket{record: r, rev: rev, done: make(chan struct{})}
}

func settledTicket(r Record) *Ticket {
	t := newTicket(r, 0)
	close(t.done)
	return t
}

func failedTicket(kind Kind, id string, class, cause error) *Ticket {
	t := newTicket(Record{Kind: kind, TaskID: id, State: StateRolledBack}, 0)
	t.err = &Error{Kind: kind, TaskID: id, Class: class, Err: cause}
	close(t.done)
	return t
}

func (t *Ticket) settle(r Record, err error) {
	t.mu.Lock()
	t.record = r
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// Done is closed once the mutation has settled.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the mutation settles or ctx ends, and returns the
// surfaced error.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the surfaced error. It is nil while pending, after success and
// after a discarded stale confirmation.
func (t *Ticket) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Record returns the current state of the mutation.
func (t *Ticket) Record() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}
