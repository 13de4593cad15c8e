// Package adapter defines the common storage interface implemented by the
// local file-backed store and the remote board-backed store, and consumed
// by the sync engine and the hybrid façade. Neither implementation imports
// the other; both depend only on this package and internal/model.
package adapter

import (
	"context"
	"errors"

	"tasksync/internal/model"
)

// ErrUnsupportedOperation is returned by adapters for operations their
// backing store has no way to express, such as a bulk overwrite against a
// board that has no bulk-replace endpoint.
var ErrUnsupportedOperation = errors.New("adapter: operation not supported")

// Filter narrows a GetTasks call. A zero Filter matches everything.
type Filter struct {
	// Status filters by lifecycle state; nil matches any status.
	Status *model.Status
	IDs    []int64
	Query  string
}

// ProviderInfo identifies an adapter instance for logging and for the
// façade's provenance bookkeeping (which side a task actually lives on).
type ProviderInfo struct {
	Name        string
	DisplayName string
}

// TaskRef resolves an identifier to exactly one of Task or Subtask; both
// nil means not found. Callers branch on which field is set rather than
// the adapter returning two incompatible lookup methods.
type TaskRef struct {
	Task    *model.Task
	Subtask *model.Subtask
}

// Adapter is the storage contract shared by the local and remote stores.
// Every method that touches the backing store takes a context so the
// remote implementation can honor caller-imposed deadlines; the local
// implementation accepts and ignores cancellation on its in-process file
// I/O, mirroring how the teacher's SQLite backend treats ctx as advisory.
type Adapter interface {
	Initialize(ctx context.Context) error

	GetTasks(ctx context.Context, f Filter) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (TaskRef, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	GetSubtasks(ctx context.Context, parentID int64) ([]model.Subtask, error)
	CreateSubtask(ctx context.Context, parentID int64, s model.Subtask) (model.Subtask, error)
	UpdateSubtask(ctx context.Context, parentID, subID int64, patch model.Subtask) (model.Subtask, error)
	DeleteSubtask(ctx context.Context, parentID, subID int64) error

	// SaveTasks replaces the adapter's entire task set. The remote board
	// adapter does not support a bulk overwrite and returns a not-found-kind
	// telemetry.Error wrapping ErrUnsupportedOperation.
	SaveTasks(ctx context.Context, tasks []model.Task) error

	Validate(ctx context.Context) error
	ProviderInfo() ProviderInfo
}
