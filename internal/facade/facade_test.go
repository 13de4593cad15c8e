package facade

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/adapter"
	"tasksync/internal/model"
	"tasksync/internal/syncengine"
)

// fakeQueue is an in-memory Drainer used to exercise enqueue-on-failure and
// DrainQueue without pulling in the sqlite-backed queue package.
type fakeQueue struct {
	mu        sync.Mutex
	entries   map[string]model.QueueEntry
	seq       int
	succeeded []string
	failed    []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{entries: map[string]model.QueueEntry{}}
}

func (q *fakeQueue) Enqueue(ctx context.Context, entry model.QueueEntry) (model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	entry.ID = fmt.Sprintf("q-%d", q.seq)
	entry.EnqueuedAt = time.Now().UTC()
	q.entries[entry.ID] = entry
	return entry, nil
}

func (q *fakeQueue) Ready(ctx context.Context, now time.Time) ([]model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.QueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e)
	}
	return out, nil
}

func (q *fakeQueue) MarkSucceeded(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, id)
	q.succeeded = append(q.succeeded, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.entries[id]
	e.RetryCount++
	e.LastError = cause.Error()
	q.entries[id] = e
	q.failed = append(q.failed, id)
	return nil
}

type fakeAdapter struct {
	mu          sync.Mutex
	tasks       map[int64]model.Task
	name        string
	deleteCalls int
	failDelete  bool
	createErr   error
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{tasks: map[int64]model.Task{}, name: name}
}

func (f *fakeAdapter) Initialize(ctx context.Context) error { return nil }

func (f *fakeAdapter) GetTasks(ctx context.Context, filter adapter.Filter) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeAdapter) GetTask(ctx context.Context, id string) (adapter.TaskRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parsed int64
	fmt.Sscanf(id, "%d", &parsed)
	if t, ok := f.tasks[parsed]; ok {
		clone := t.Clone()
		return adapter.TaskRef{Task: &clone}, nil
	}
	return adapter.TaskRef{}, nil
}

func (f *fakeAdapter) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Task{}, f.createErr
	}
	if t.ID == 0 {
		t.ID = int64(len(f.tasks) + 1)
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeAdapter) UpdateTask(ctx context.Context, id string, patch model.Task) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parsed int64
	fmt.Sscanf(id, "%d", &parsed)
	existing := f.tasks[parsed]
	merged := existing
	if patch.Title != "" {
		merged.Title = patch.Title
	}
	merged.LastModifiedLocal = patch.LastModifiedLocal
	merged.ID = parsed
	f.tasks[parsed] = merged
	return merged, nil
}

func (f *fakeAdapter) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete {
		return assertError{"delete failed"}
	}
	var parsed int64
	fmt.Sscanf(id, "%d", &parsed)
	delete(f.tasks, parsed)
	return nil
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func (f *fakeAdapter) GetSubtasks(ctx context.Context, parentID int64) ([]model.Subtask, error) {
	return nil, nil
}
func (f *fakeAdapter) CreateSubtask(ctx context.Context, parentID int64, s model.Subtask) (model.Subtask, error) {
	return model.Subtask{}, nil
}
func (f *fakeAdapter) UpdateSubtask(ctx context.Context, parentID, subID int64, patch model.Subtask) (model.Subtask, error) {
	return model.Subtask{}, nil
}
func (f *fakeAdapter) DeleteSubtask(ctx context.Context, parentID, subID int64) error { return nil }

func (f *fakeAdapter) SaveTasks(ctx context.Context, tasks []model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = map[int64]model.Task{}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return nil
}

func (f *fakeAdapter) Validate(ctx context.Context) error { return nil }

func (f *fakeAdapter) ProviderInfo() adapter.ProviderInfo {
	return adapter.ProviderInfo{Name: f.name}
}

func TestCreateTaskMirrorsToSecondary(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	engine := syncengine.New(local, remote, syncengine.StrategyManual)
	f := New(local, remote, engine, nil, Config{PrimaryProvider: ProviderLocal, SyncOnWrite: true})

	created, err := f.CreateTask(context.Background(), model.Task{Title: "A"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, created.ID)

	_, ok := remote.tasks[1]
	assert.True(t, ok, "secondary should receive the opportunistic mirror")
}

func TestUpdateTaskStampsLastModifiedLocal(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	engine := syncengine.New(local, remote, syncengine.StrategyManual)
	f := New(local, remote, engine, nil, Config{PrimaryProvider: ProviderLocal, SyncOnWrite: false})

	local.tasks[1] = model.Task{ID: 1, Title: "A"}
	updated, err := f.UpdateTask(context.Background(), "1", model.Task{Title: "B"})
	require.NoError(t, err)
	assert.False(t, updated.LastModifiedLocal.IsZero())
}

func TestDeleteTaskBroadcastsEvenWhenSecondaryFails(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	remote.failDelete = true
	engine := syncengine.New(local, remote, syncengine.StrategyManual)
	f := New(local, remote, engine, nil, Config{PrimaryProvider: ProviderLocal, SyncOnWrite: false})

	local.tasks[1] = model.Task{ID: 1, Title: "A"}

	err := f.DeleteTask(context.Background(), "1")
	require.NoError(t, err, "secondary failure must not surface to the caller")
	assert.Equal(t, 1, remote.deleteCalls)
	_, stillThere := local.tasks[1]
	assert.False(t, stillThere)
}

func TestMaybeSyncTaskFailureDurablyEnqueues(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	engine := syncengine.New(local, remote, syncengine.StrategyManual)
	q := newFakeQueue()
	f := New(local, remote, engine, q, Config{PrimaryProvider: ProviderLocal, SyncOnWrite: true})

	// Break the secondary's CreateTask so the opportunistic mirror in
	// CreateTask's maybeSyncTask call fails.
	remote.failDelete = false
	remote.createErr = assertError{"remote unreachable"}

	created, err := f.CreateTask(context.Background(), model.Task{Title: "A"})
	require.NoError(t, err, "primary write must still succeed")

	require.Len(t, q.entries, 1)
	for _, entry := range q.entries {
		assert.Equal(t, created.ID, entry.TaskID)
		assert.Equal(t, model.OpCreate, entry.Operation)
		assert.NotEmpty(t, entry.LastError)
	}
}

func TestDrainQueueRetriesAndClearsSucceededEntries(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	engine := syncengine.New(local, remote, syncengine.StrategyManual)
	q := newFakeQueue()
	f := New(local, remote, engine, q, Config{PrimaryProvider: ProviderLocal, SyncOnWrite: false})

	local.tasks[1] = model.Task{ID: 1, Title: "A"}
	_, err := q.Enqueue(context.Background(), model.QueueEntry{TaskID: 1, Operation: model.OpCreate, Payload: local.tasks[1]})
	require.NoError(t, err)

	drained, failed, err := f.DrainQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, drained)
	assert.Equal(t, 0, failed)
	assert.Empty(t, q.entries)
	assert.Equal(t, []string{"q-1"}, q.succeeded)
}

func TestDrainQueueRequeuesStillFailingEntries(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	remote.createErr = assertError{"still down"}
	engine := syncengine.New(local, remote, syncengine.StrategyManual)
	q := newFakeQueue()
	f := New(local, remote, engine, q, Config{PrimaryProvider: ProviderLocal, SyncOnWrite: false})

	local.tasks[1] = model.Task{ID: 1, Title: "A"}
	_, err := q.Enqueue(context.Background(), model.QueueEntry{TaskID: 1, Operation: model.OpCreate, Payload: local.tasks[1]})
	require.NoError(t, err)

	drained, failed, err := f.DrainQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, drained)
	assert.Equal(t, 1, failed)
	assert.Len(t, q.entries, 1, "entry stays queued for the next drain pass")
	assert.Equal(t, []string{"q-1"}, q.failed)
}
