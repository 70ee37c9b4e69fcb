// Package reconciler keeps a client-side mirror of the signed-in user's
// task list in sync with server responses. It is deliberately free of any
// transport or rendering concerns so the merge logic can be unit-tested:
// callers feed it server-confirmed records and it maintains the visible
// list, including optimistic deletion with undo.
package reconciler

import (
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/todolst/internal/task"
)

// OpKind names a pending compensable operation.
type OpKind string

// OpDelete is the only compensable operation: a delete applied locally
// before the server confirmed it.
const OpDelete OpKind = "delete"

// PendingOp records an optimistic operation that may still need to be
// compensated. Undo and Fail compensate it at most once.
type PendingOp struct {
	ID     string
	Kind   OpKind
	TaskID string

	snapshot task.Task
	index    int
}

// Store mirrors the server's task list. All methods are safe for
// concurrent use; UI callbacks and late transport responses may race.
type Store struct {
	mu      sync.Mutex
	tasks   []task.Task
	seqs    map[string]uint64
	applied map[string]uint64
	pending map[string]*PendingOp
}

// NewStore returns an empty mirror.
func NewStore() *Store {
	return &Store{
		seqs:    map[string]uint64{},
		applied: map[string]uint64{},
		pending: map[string]*PendingOp{},
	}
}

// Tasks returns a snapshot of the visible list.
func (s *Store) Tasks() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]task.Task, len(s.tasks))
	copy(snapshot, s.tasks)
	return snapshot
}

// Replace swaps the whole local list for the server's current one,
// dropping every pending operation and sequence counter. Used on load
// and after a full refetch.
func (s *Store) Replace(tasks []task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make([]task.Task, len(tasks))
	copy(s.tasks, tasks)
	s.seqs = map[string]uint64{}
	s.applied = map[string]uint64{}
	s.pending = map[string]*PendingOp{}
}

// ApplyCreated prepends the server-confirmed record. The server assigns
// the ID; a client-generated one is never trusted, so there is no
// placeholder to reconcile against.
func (s *Store) ApplyCreated(tsk task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append([]task.Task{tsk}, s.tasks...)
}

// NextSeq returns the sequence number to tag the next update request for
// the task with. Responses carrying older numbers are discarded by
// ApplyUpdated.
func (s *Store) NextSeq(taskID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqs[taskID]++
	return s.seqs[taskID]
}

// ApplyUpdated replaces the matching local record with the
// server-confirmed one and reports whether it was applied. A response
// whose sequence number is older than an already-applied one arrives
// late and is dropped, so a slow early edit can never overwrite a
// faster later one.
func (s *Store) ApplyUpdated(seq uint64, tsk task.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastApplied, ok := s.applied[tsk.ID]
	if ok && seq <= lastApplied {
		return false
	}
	s.applied[tsk.ID] = seq

	for i := range s.tasks {
		if s.tasks[i].ID == tsk.ID {
			s.tasks[i] = tsk
			return true
		}
	}

	return false
}

// DeleteOptimistic removes the task from the visible list immediately
// and records a pending operation whose compensation re-inserts the
// task at its previous position. The returned operation ID is handed to
// Confirm, Fail, or Undo depending on how the server request ends.
func (s *Store) DeleteOptimistic(taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}

		op := &PendingOp{
			ID:       uuid.New().String(),
			Kind:     OpDelete,
			TaskID:   taskID,
			snapshot: s.tasks[i],
			index:    i,
		}
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		s.pending[op.ID] = op

		return op.ID, true
	}

	return "", false
}

// Confirm discharges a pending operation after the server accepted it.
func (s *Store) Confirm(opID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, opID)
}

// Fail compensates a pending operation after the server rejected it,
// re-inserting the removed task. It reports whether the operation was
// still pending.
func (s *Store) Fail(opID string) bool {
	return s.compensate(opID)
}

// Undo compensates a pending operation on user request. The caller is
// responsible for cancelling the in-flight server request if the
// transport supports it; without cancellation the undo is a best-effort
// view restoration, not a transactional rollback.
func (s *Store) Undo(opID string) bool {
	return s.compensate(opID)
}

func (s *Store) compensate(opID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.pending[opID]
	if !ok {
		return false
	}
	delete(s.pending, opID)

	index := op.index
	if index > len(s.tasks) {
		index = len(s.tasks)
	}

	s.tasks = append(s.tasks[:index], append([]task.Task{op.snapshot}, s.tasks[index:]...)...)
	return true
}

// PendingCount reports how many operations still await confirmation.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}
