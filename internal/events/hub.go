// Package events implements the observer-registry pattern used by every
// long-lived component (adapters, engine, façade) in place of the
// teacher's open-ended pub/sub: each component owns a Hub of typed Kind
// values instead of holding a back-reference to its subscribers' parent.
package events

import (
	"sort"
	"sync"

	"tasksync/internal/model"
)

// Kind enumerates the finite set of event kinds a component may emit.
type Kind string

const (
	TaskCreated      Kind = "taskCreated"
	TaskUpdated      Kind = "taskUpdated"
	TaskDeleted      Kind = "taskDeleted"
	SubtaskCreated   Kind = "subtaskCreated"
	SubtaskUpdated   Kind = "subtaskUpdated"
	SubtaskDeleted   Kind = "subtaskDeleted"
	TasksSaved       Kind = "tasksSaved"
	SyncStarted      Kind = "syncStarted"
	SyncCompleted    Kind = "syncCompleted"
	ConflictDetected Kind = "conflictDetected"
	ConflictResolved Kind = "conflictResolved"
	SyncError        Kind = "syncError"
)

// Event is the payload delivered to subscribers. Only the fields relevant
// to Kind are populated; the rest are zero.
type Event struct {
	Kind     Kind
	Task     *model.Task
	Subtask  *model.Subtask
	Conflict *model.Conflict
	Err      error
	Message  string
	// Data carries kind-specific payloads (e.g. a sync pass result) that
	// would otherwise force an import cycle between this package and the
	// sync engine. Consumers type-assert against the documented shape for
	// Kind.
	Data any
}

// Hub is a small observer registry. Components embed one instead of
// holding references to their listeners' owners, which is how the
// adapter/engine/façade observation cycle described in spec.md §9 is
// broken: nobody holds a strong back-reference to a parent.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

// Subscribe registers fn for every event this hub emits. The returned
// function removes the subscription; it is safe to call more than once.
func (h *Hub) Subscribe(fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[int]func(Event))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Emit delivers e to every current subscriber. Subscribers are invoked
// synchronously and in registration order; a panicking subscriber is the
// caller's bug, not ours, so Emit does not recover.
func (h *Hub) Emit(e Event) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
