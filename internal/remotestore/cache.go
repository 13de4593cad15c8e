package remotestore

import (
	"sync"
	"time"

	"tasksync/internal/model"
)

// boardCache is a short-lived, in-memory snapshot of the whole board.
// Kept in-memory rather than the teacher's disk-backed internal/cache/
// pattern: this cache is purely a read-through optimization, always
// trivially rebuildable from a fetch, so persisting it across process
// restarts buys nothing.
type boardCache struct {
	mu        sync.Mutex
	tasks     []model.Task
	fetchedAt time.Time
	ttl       time.Duration
}

func newBoardCache(ttl time.Duration) *boardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &boardCache{ttl: ttl}
}

// get returns the cached snapshot and true if it is still fresh.
func (c *boardCache) get() ([]model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	out := make([]model.Task, len(c.tasks))
	copy(out, c.tasks)
	return out, true
}

func (c *boardCache) set(tasks []model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = make([]model.Task, len(tasks))
	copy(c.tasks, tasks)
	c.fetchedAt = time.Now()
}

// invalidate drops the cached snapshot; called after every successful
// write so the next read observes the mutation.
func (c *boardCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
	c.tasks = nil
}
