package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/adapter"
	"tasksync/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "tasks.json"))
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestCreateTaskAssignsFirstIDOne(t *testing.T) {
	s := newTestStore(t)

	task, err := s.CreateTask(context.Background(), model.Task{Title: "A"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, task.ID)

	task2, err := s.CreateTask(context.Background(), model.Task{Title: "B"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, task2.ID)
}

func TestCreateTaskHonorsExplicitID(t *testing.T) {
	s := newTestStore(t)

	task, err := s.CreateTask(context.Background(), model.Task{ID: 42, Title: "ingested from remote"})
	require.NoError(t, err)
	assert.EqualValues(t, 42, task.ID)

	// A subsequent auto-assigned create must not collide with it.
	task2, err := s.CreateTask(context.Background(), model.Task{Title: "B"})
	require.NoError(t, err)
	assert.EqualValues(t, 43, task2.ID)
}

func TestCreateTaskRejectsExplicitIDCollision(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateTask(context.Background(), model.Task{ID: 7, Title: "first"})
	require.NoError(t, err)

	_, err = s.CreateTask(context.Background(), model.Task{ID: 7, Title: "second"})
	require.Error(t, err)
}

func TestCreateTaskRejectsSelfDependency(t *testing.T) {
	s := newTestStore(t)
	// id 1 will be assigned; referencing it before it exists must fail.
	_, err := s.CreateTask(context.Background(), model.Task{Title: "A", Dependencies: []int64{1}})
	require.Error(t, err)
}

func TestCreateTaskRejectsMissingDependency(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTask(context.Background(), model.Task{Title: "A", Dependencies: []int64{99}})
	require.Error(t, err)
}

func TestDeleteTaskCleansSiblingDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, model.Task{Title: "B", Dependencies: []int64{1}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTask(ctx, "1"))

	remaining, err := s.GetTasks(ctx, adapter.Filter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Empty(t, remaining[0].Dependencies)
}

func TestDeleteTaskSkipCleanupPreservesDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, model.Task{Title: "B", Dependencies: []int64{1}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTaskSkipCleanup(ctx, "1"))

	remaining, err := s.GetTasks(ctx, adapter.Filter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, []int64{1}, remaining[0].Dependencies)
}

func TestSubtaskIDWithoutDotIsTopLevelTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A"})
	require.NoError(t, err)

	ref, err := s.GetTask(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, ref.Task)
	assert.Nil(t, ref.Subtask)
}

func TestCreateSubtaskAssignsSequentialSubID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A"})
	require.NoError(t, err)

	st1, err := s.CreateSubtask(ctx, 1, model.Subtask{Title: "sub1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, st1.SubID)

	st2, err := s.CreateSubtask(ctx, 1, model.Subtask{Title: "sub2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, st2.SubID)

	ref, err := s.GetTask(ctx, "1.2")
	require.NoError(t, err)
	require.NotNil(t, ref.Subtask)
	assert.Equal(t, "sub2", ref.Subtask.Title)
}

func TestGetTasksFiltersByQueryCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "Write README"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, model.Task{Title: "Fix bug"})
	require.NoError(t, err)

	results, err := s.GetTasks(ctx, adapter.Filter{Query: "readme"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Write README", results[0].Title)
}

func TestSaveTasksRejectsMissingTitle(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveTasks(context.Background(), []model.Task{{ID: 1}})
	require.Error(t, err)
}

func TestReloadPicksUpExternalWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A"})
	require.NoError(t, err)

	// A second store instance pointed at the same path observes the write
	// once its own mtime check fires.
	s2 := New(s.path)
	require.NoError(t, s2.Initialize(ctx))
	tasks, err := s2.GetTasks(ctx, adapter.Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}
