// Package facade implements the hybrid storage façade: a uniform task API
// that routes reads to a configured primary adapter and cascades writes
// through the sync engine with opportunistic mirroring. Grounded on
// internal/sync/coordinator.go's TriggerPushSync/TriggerPullSync,
// generalized from "always SQLite local, Todoist remote" to a
// configurable primary/secondary pair.
package facade

import (
	"context"
	"fmt"
	"time"

	"tasksync/internal/adapter"
	"tasksync/internal/events"
	"tasksync/internal/model"
	"tasksync/internal/syncengine"
	"tasksync/internal/telemetry"
)

// Enqueuer is the subset of *queue.Queue's interface the façade needs to
// durably record a write whose opportunistic mirror failed (typically
// because the remote side is offline) so it can be retried later instead
// of being silently dropped. A nil Enqueuer disables this: mirror failures
// are still reported as syncError events but nothing is persisted for
// retry, matching the façade's pre-queue behavior.
type Enqueuer interface {
	Enqueue(ctx context.Context, entry model.QueueEntry) (model.QueueEntry, error)
}

// Drainer is the subset of *queue.Queue's interface DrainQueue needs to
// retry previously-enqueued entries.
type Drainer interface {
	Enqueuer
	Ready(ctx context.Context, now time.Time) ([]model.QueueEntry, error)
	MarkSucceeded(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// Provider names which adapter is primary.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderRemote Provider = "remote"
)

// Config controls façade write behavior.
type Config struct {
	PrimaryProvider Provider
	SyncOnWrite     bool
}

// Facade is the uniform CRUD surface consumed by callers above the sync
// engine.
type Facade struct {
	primary   adapter.Adapter
	secondary adapter.Adapter
	engine    *syncengine.Engine
	cfg       Config
	queue     Drainer

	Events events.Hub
}

// New builds a Facade. local and remote must be the same adapters passed
// to engine. queue may be nil, which disables offline-write durability
// (mirror failures are reported but not retried); pass a *queue.Queue in
// production wiring.
func New(local, remote adapter.Adapter, engine *syncengine.Engine, queue Drainer, cfg Config) *Facade {
	f := &Facade{engine: engine, cfg: cfg, queue: queue}
	if cfg.PrimaryProvider == ProviderRemote {
		f.primary, f.secondary = remote, local
	} else {
		f.primary, f.secondary = local, remote
	}
	return f
}

// GetTasks reads from the primary adapter.
func (f *Facade) GetTasks(ctx context.Context, filter adapter.Filter) ([]model.Task, error) {
	return f.primary.GetTasks(ctx, filter)
}

// GetTask reads from the primary adapter.
func (f *Facade) GetTask(ctx context.Context, id string) (adapter.TaskRef, error) {
	return f.primary.GetTask(ctx, id)
}

// GetSubtasks reads from the primary adapter.
func (f *Facade) GetSubtasks(ctx context.Context, parentID int64) ([]model.Subtask, error) {
	return f.primary.GetSubtasks(ctx, parentID)
}

// CreateTask writes to the primary, then opportunistically syncs the new
// task to the secondary.
func (f *Facade) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	created, err := f.primary.CreateTask(ctx, t)
	if err != nil {
		return model.Task{}, err
	}
	f.Events.Emit(events.Event{Kind: events.TaskCreated, Task: &created})

	f.maybeSyncTask(ctx, created.ID, model.OpCreate, created)
	return created, nil
}

// UpdateTask always stamps lastModifiedLocal=now before delegating to the
// primary, then opportunistically syncs.
func (f *Facade) UpdateTask(ctx context.Context, id string, patch model.Task) (model.Task, error) {
	patch.LastModifiedLocal = time.Now().UTC()
	updated, err := f.primary.UpdateTask(ctx, id, patch)
	if err != nil {
		return model.Task{}, err
	}
	f.Events.Emit(events.Event{Kind: events.TaskUpdated, Task: &updated})

	f.maybeSyncTask(ctx, updated.ID, model.OpUpdate, updated)
	return updated, nil
}

// DeleteTask broadcasts to both adapters unconditionally: a tombstone on
// one side alone is inconsistent. The secondary delete is best-effort: its
// failure is logged via syncError, enqueued for retry (spec.md §4.D), and
// never rolls back the primary.
func (f *Facade) DeleteTask(ctx context.Context, id string) error {
	var parsedID int64
	fmt.Sscanf(id, "%d", &parsedID)

	if err := f.primary.DeleteTask(ctx, id); err != nil {
		return err
	}
	f.Events.Emit(events.Event{Kind: events.TaskDeleted})

	if err := f.secondary.DeleteTask(ctx, id); err != nil {
		f.Events.Emit(events.Event{Kind: events.SyncError, Err: err, Message: fmt.Sprintf("secondary delete failed for task %s", id)})
		f.enqueueRetry(ctx, parsedID, model.OpDelete, model.Task{ID: parsedID}, err)
	}
	return nil
}

// CreateSubtask writes to the primary then opportunistically syncs the
// parent task.
func (f *Facade) CreateSubtask(ctx context.Context, parentID int64, s model.Subtask) (model.Subtask, error) {
	created, err := f.primary.CreateSubtask(ctx, parentID, s)
	if err != nil {
		return model.Subtask{}, err
	}
	f.Events.Emit(events.Event{Kind: events.SubtaskCreated, Subtask: &created})

	f.maybeSyncTask(ctx, parentID, model.OpUpdate, model.Task{ID: parentID})
	return created, nil
}

// UpdateSubtask writes to the primary then opportunistically syncs the
// parent task.
func (f *Facade) UpdateSubtask(ctx context.Context, parentID, subID int64, patch model.Subtask) (model.Subtask, error) {
	updated, err := f.primary.UpdateSubtask(ctx, parentID, subID, patch)
	if err != nil {
		return model.Subtask{}, err
	}
	f.Events.Emit(events.Event{Kind: events.SubtaskUpdated, Subtask: &updated})

	f.maybeSyncTask(ctx, parentID, model.OpUpdate, model.Task{ID: parentID})
	return updated, nil
}

// DeleteSubtask broadcasts to both adapters, mirroring DeleteTask's
// tombstone-consistency rule.
func (f *Facade) DeleteSubtask(ctx context.Context, parentID, subID int64) error {
	if err := f.primary.DeleteSubtask(ctx, parentID, subID); err != nil {
		return err
	}
	f.Events.Emit(events.Event{Kind: events.SubtaskDeleted})

	if err := f.secondary.DeleteSubtask(ctx, parentID, subID); err != nil {
		f.Events.Emit(events.Event{Kind: events.SyncError, Err: err, Message: fmt.Sprintf("secondary subtask delete failed for %d.%d", parentID, subID)})
		f.enqueueRetry(ctx, parentID, model.OpUpdate, model.Task{ID: parentID}, err)
	}
	return nil
}

// SaveTasks writes to the primary then, if syncOnWrite is enabled, drives
// a full sync pass. This is a documented limitation (spec.md §9): there is
// no separate batched sync path, so a large SaveTasks call pays the cost
// of a full SyncAll.
func (f *Facade) SaveTasks(ctx context.Context, tasks []model.Task) error {
	if err := f.primary.SaveTasks(ctx, tasks); err != nil {
		return err
	}
	f.Events.Emit(events.Event{Kind: events.TasksSaved})

	if f.cfg.SyncOnWrite {
		if _, err := f.engine.SyncAll(ctx); err != nil {
			f.Events.Emit(events.Event{Kind: events.SyncError, Err: err})
		}
	}
	return nil
}

// maybeSyncTask invokes the engine's per-task sync when syncOnWrite is
// enabled. Failure is captured as a syncError event and, when a queue is
// configured, durably enqueued as op against snapshot so the write survives
// a restart and is retried by DrainQueue (spec.md §4.D). The caller already
// has their successful primary write and is never rolled back.
func (f *Facade) maybeSyncTask(ctx context.Context, id int64, op model.Operation, snapshot model.Task) {
	if !f.cfg.SyncOnWrite {
		return
	}
	if _, err := f.engine.SyncTask(ctx, id); err != nil {
		f.Events.Emit(events.Event{Kind: events.SyncError, Err: telemetry.Wrap(telemetry.KindTransport, "maybeSyncTask", err)})
		f.enqueueRetry(ctx, id, op, snapshot, err)
	}
}

// enqueueRetry persists a failed mirror operation for later retry via
// DrainQueue. A nil queue (no-op mode) silently skips this.
func (f *Facade) enqueueRetry(ctx context.Context, id int64, op model.Operation, snapshot model.Task, cause error) {
	if f.queue == nil {
		return
	}
	if _, err := f.queue.Enqueue(ctx, model.QueueEntry{TaskID: id, Operation: op, Payload: snapshot, LastError: cause.Error()}); err != nil {
		f.Events.Emit(events.Event{Kind: events.SyncError, Err: telemetry.Wrap(telemetry.KindTransport, "enqueueRetry", err)})
	}
}

// DrainQueue retries every ready queue entry by re-running the engine's
// per-task sync, which re-derives current state from both adapters rather
// than replaying the stored payload bytes verbatim. Entries that succeed are
// removed; entries that fail again are requeued with backoff (or
// dead-lettered once MaxRetries is exceeded) by the queue itself.
func (f *Facade) DrainQueue(ctx context.Context) (drained, failed int, err error) {
	if f.queue == nil {
		return 0, 0, nil
	}
	entries, err := f.queue.Ready(ctx, time.Now().UTC())
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if _, syncErr := f.engine.SyncTask(ctx, entry.TaskID); syncErr != nil {
			if markErr := f.queue.MarkFailed(ctx, entry.ID, syncErr); markErr != nil {
				f.Events.Emit(events.Event{Kind: events.SyncError, Err: telemetry.Wrap(telemetry.KindTransport, "DrainQueue", markErr)})
			}
			failed++
			continue
		}
		if markErr := f.queue.MarkSucceeded(ctx, entry.ID); markErr != nil {
			f.Events.Emit(events.Event{Kind: events.SyncError, Err: telemetry.Wrap(telemetry.KindTransport, "DrainQueue", markErr)})
		}
		drained++
	}
	return drained, failed, nil
}

// SyncAll runs a full bidirectional sync pass, passing through to the
// engine. Used by the auto-sync driver's periodic pass.
func (f *Facade) SyncAll(ctx context.Context) (*syncengine.SyncResult, error) {
	return f.engine.SyncAll(ctx)
}
