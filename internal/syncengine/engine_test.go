package syncengine

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
)

// fakeAdapter is an in-memory adapter.Adapter used to exercise the engine
// without either real store implementation.
type fakeAdapter struct {
	mu    sync.Mutex
	tasks map[int64]model.Task
	name  string
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
	if t.ID == 0 {
		t.ID = int64(len(f.tasks) + 1)
	}
	t.RemoteItemID = fmt.Sprintf("%s-%d", f.name, t.ID)
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
	if patch.Status != "" {
		merged.Status = patch.Status
	}
	if !patch.LastSyncedAt.IsZero() {
		merged.LastSyncedAt = patch.LastSyncedAt
	}
	if !patch.LastModifiedLocal.IsZero() {
		merged.LastModifiedLocal = patch.LastModifiedLocal
	}
	if !patch.LastModifiedRemote.IsZero() {
		merged.LastModifiedRemote = patch.LastModifiedRemote
	}
	if patch.SyncStatus != "" {
		merged.SyncStatus = patch.SyncStatus
	}
	if patch.RemoteItemID != "" {
		merged.RemoteItemID = patch.RemoteItemID
	}
	if patch.LastSyncError != "" {
		merged.LastSyncError = patch.LastSyncError
	}
	merged.ID = parsed
	f.tasks[parsed] = merged
	return merged, nil
}

func (f *fakeAdapter) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parsed int64
	fmt.Sscanf(id, "%d", &parsed)
	delete(f.tasks, parsed)
	return nil
}

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

func TestSyncAllFreshMirrorCreatesOnRemote(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	local.tasks[1] = model.Task{ID: 1, Title: "A", Status: model.StatusPending}

	e := New(local, remote, StrategyManual)
	result, err := e.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.LocalToRemote.Created)

	remoteTask := remote.tasks[1]
	assert.Equal(t, "A", remoteTask.Title)

	localTask := local.tasks[1]
	assert.NotEmpty(t, localTask.RemoteItemID)
	assert.Equal(t, model.SyncSynced, localTask.SyncStatus)
}

func TestSyncAllRemoteOnlyIngest(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	remote.tasks[1] = model.Task{ID: 1, Title: "B", RemoteItemID: "remote-1"}

	e := New(local, remote, StrategyManual)
	result, err := e.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemoteToLocal.Created)
	assert.Equal(t, "B", local.tasks[1].Title)
	assert.Equal(t, int64(1), local.tasks[1].ID, "ingested task must keep the remote-resolved id so the next pass's indexByID keys line up")
	assert.Equal(t, model.SyncSynced, local.tasks[1].SyncStatus)
	assert.False(t, local.tasks[1].LastSyncedAt.IsZero())
}

func TestSyncAllDetectsConflictUnderManualStrategy(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")

	lastSync := time.Now().Add(-time.Hour)
	local.tasks[5] = model.Task{ID: 5, Title: "local edit", LastSyncedAt: lastSync, LastModifiedLocal: time.Now()}
	remote.tasks[5] = model.Task{ID: 5, Title: "remote edit", LastModifiedRemote: time.Now()}

	e := New(local, remote, StrategyManual)
	result, err := e.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Conflicts.Detected)
	assert.Equal(t, 1, result.Conflicts.Remaining)

	require.NoError(t, e.ResolveConflict(context.Background(), 5, StrategyLocalWins))
	assert.Equal(t, "local edit", remote.tasks[5].Title)
	assert.Empty(t, e.Conflicts())

	err = e.ResolveConflict(context.Background(), 5, StrategyLocalWins)
	assert.ErrorIs(t, err, ErrNoSuchConflict)
}

func TestNewestWinsTieGoesToLocal(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")

	lastSync := time.Now().Add(-time.Hour)
	tie := time.Now()
	local.tasks[9] = model.Task{ID: 9, Title: "local v", LastSyncedAt: lastSync, LastModifiedLocal: tie}
	remote.tasks[9] = model.Task{ID: 9, Title: "remote v", LastModifiedRemote: tie}

	e := New(local, remote, StrategyNewestWins)
	_, err := e.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "local v", remote.tasks[9].Title)
}

func TestSyncTaskCreatesInRemoteWhenOnlyLocalExists(t *testing.T) {
	local := newFakeAdapter("local")
	remote := newFakeAdapter("remote")
	local.tasks[1] = model.Task{ID: 1, Title: "A"}

	e := New(local, remote, StrategyManual)
	result, err := e.SyncTask(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ActionCreatedInRemote, result.Action)
	assert.True(t, result.Success)
}
