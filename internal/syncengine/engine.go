// Package syncengine implements conflict detection, strategy-based
// resolution, and full/per-task sync passes between a local and a remote
// adapter. Grounded on backend/sync/manager.go's pull/push/resolveConflict
// family and internal/sync/coordinator.go's single-flight/state-machine
// discipline, generalized from Todoist/CalDAV-specific fields to the
// spec's timestamp-chain conflict detection.
package syncengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tasksync/internal/adapter"
	"tasksync/internal/events"
	"tasksync/internal/model"
	"tasksync/internal/telemetry"
)

// Strategy names a conflict resolution policy.
type Strategy string

const (
	StrategyManual      Strategy = "manual"
	StrategyLocalWins   Strategy = "local-wins"
	StrategyRemoteWins  Strategy = "remote-wins"
	StrategyNewestWins  Strategy = "newest-wins"
)

// Action describes what SyncTask did for one id.
type Action string

const (
	ActionCreatedInRemote        Action = "created-in-remote"
	ActionCreatedInLocal         Action = "created-in-local"
	ActionUpdatedRemoteFromLocal Action = "updated-remote-from-local"
	ActionUpdatedLocalFromRemote Action = "updated-local-from-remote"
	ActionConflictDetected       Action = "conflict-detected"
	ActionNoop                   Action = "noop"
)

// TaskSyncResult is the outcome of one per-task sync.
type TaskSyncResult struct {
	TaskID   int64
	Action   Action
	Success  bool
	Conflict *model.Conflict
	Err      error
}

// DirectionCounts tallies one direction of a full pass.
type DirectionCounts struct {
	Created int
	Updated int
	Failed  int
	Skipped int
}

// ConflictCounts tallies conflict activity of a full pass.
type ConflictCounts struct {
	Detected  int
	Resolved  int
	Remaining int
}

// SyncResult is the outcome of one SyncAll pass.
type SyncResult struct {
	LocalToRemote DirectionCounts
	RemoteToLocal DirectionCounts
	Conflicts     ConflictCounts
	DurationMs    int64
	FinishedAt    time.Time
}

// Engine drives conflict detection/resolution and sync passes between two
// adapters. All sync activity (full passes and per-task force-syncs) is
// serialized behind mu per spec.md §5's single-lock ordering guarantee.
type Engine struct {
	local  adapter.Adapter
	remote adapter.Adapter

	strategy Strategy

	mu        sync.Mutex
	conflicts map[int64]*model.Conflict

	Events events.Hub
}

// New builds an Engine over the given adapters and default strategy.
func New(local, remote adapter.Adapter, strategy Strategy) *Engine {
	if strategy == "" {
		strategy = StrategyManual
	}
	return &Engine{
		local:     local,
		remote:    remote,
		strategy:  strategy,
		conflicts: make(map[int64]*model.Conflict),
	}
}

// detectConflict applies the timestamp fallback chain from spec.md §9:
// lastModifiedLocal falls back to updatedAt, lastModifiedRemote falls back
// to updatedAt, both defaulting to the epoch. A conflict exists iff both
// sides were modified after lastSyncedAt; otherwise the strictly newer
// side wins, ties going to local.
func detectConflict(local, remote model.Task) (conflict bool, localWins bool) {
	lastSync := local.LastSyncedAt
	localModified := local.EffectiveLocalModified()
	remoteModified := remote.EffectiveRemoteModified()

	localChanged := localModified.After(lastSync)
	remoteChanged := remoteModified.After(lastSync)

	if localChanged && remoteChanged {
		return true, false
	}
	if remoteModified.After(localModified) {
		return false, false
	}
	return false, true
}

// SyncAll performs a three-phase pass: parallel snapshot reads, local→remote
// reconciliation (authoritative conflict detection), remote→local
// reconciliation (skipping already-flagged tasks), then strategy-driven
// conflict resolution.
func (e *Engine) SyncAll(ctx context.Context) (*SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now().UTC()
	e.Events.Emit(events.Event{Kind: events.SyncStarted})

	localTasks, remoteTasks, err := e.snapshotBoth(ctx)
	if err != nil {
		e.Events.Emit(events.Event{Kind: events.SyncError, Err: err})
		return nil, err
	}

	localByID := indexByID(localTasks)
	remoteByID := indexByID(remoteTasks)

	result := &SyncResult{}
	flagged := make(map[int64]bool)

	// Phase 1: local→remote is authoritative for conflict detection.
	for id, lt := range localByID {
		rt, exists := remoteByID[id]
		if !exists {
			if err := e.createOnRemote(ctx, lt); err != nil {
				result.LocalToRemote.Failed++
				e.markLocalError(ctx, id, err)
				continue
			}
			result.LocalToRemote.Created++
			continue
		}

		conflict, localWins := detectConflict(lt, rt)
		if conflict {
			e.recordConflict(id, lt, rt)
			flagged[id] = true
			result.Conflicts.Detected++
			continue
		}
		if localWins && lt.EffectiveLocalModified().After(rt.EffectiveRemoteModified()) {
			if err := e.pushLocalToRemote(ctx, lt); err != nil {
				result.LocalToRemote.Failed++
				e.markLocalError(ctx, id, err)
				continue
			}
			result.LocalToRemote.Updated++
		} else {
			result.LocalToRemote.Skipped++
		}
	}

	// Phase 2: remote→local handles remote-only and not-yet-flagged tasks.
	for id, rt := range remoteByID {
		if flagged[id] {
			continue
		}
		lt, exists := localByID[id]
		if !exists {
			if err := e.createOnLocal(ctx, rt); err != nil {
				result.RemoteToLocal.Failed++
				continue
			}
			result.RemoteToLocal.Created++
			continue
		}

		conflict, localWins := detectConflict(lt, rt)
		if conflict {
			e.recordConflict(id, lt, rt)
			result.Conflicts.Detected++
			continue
		}
		if !localWins {
			if err := e.pullRemoteToLocal(ctx, lt, rt); err != nil {
				result.RemoteToLocal.Failed++
				continue
			}
			result.RemoteToLocal.Updated++
		} else {
			result.RemoteToLocal.Skipped++
		}
	}

	if e.strategy != StrategyManual {
		for id := range e.snapshotConflicts() {
			if err := e.resolveLocked(ctx, id, e.strategy); err == nil {
				result.Conflicts.Resolved++
			}
		}
	}
	result.Conflicts.Remaining = len(e.conflicts)

	result.DurationMs = time.Since(start).Milliseconds()
	result.FinishedAt = time.Now().UTC()
	e.Events.Emit(events.Event{Kind: events.SyncCompleted, Data: result})
	return result, nil
}

func (e *Engine) snapshotBoth(ctx context.Context) ([]model.Task, []model.Task, error) {
	g, gctx := errgroup.WithContext(ctx)

	var localTasks, remoteTasks []model.Task
	g.Go(func() error {
		tasks, err := e.local.GetTasks(gctx, adapter.Filter{})
		localTasks = tasks
		return err
	})
	g.Go(func() error {
		tasks, err := e.remote.GetTasks(gctx, adapter.Filter{})
		remoteTasks = tasks
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, telemetry.Wrap(telemetry.KindTransport, "snapshotBoth", err)
	}
	return localTasks, remoteTasks, nil
}

func indexByID(tasks []model.Task) map[int64]model.Task {
	out := make(map[int64]model.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}

func (e *Engine) createOnRemote(ctx context.Context, local model.Task) error {
	created, err := e.remote.CreateTask(ctx, local)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	patch := model.Task{RemoteItemID: created.RemoteItemID, LastSyncedAt: now, SyncStatus: model.SyncSynced}
	_, err = e.local.UpdateTask(ctx, idString(local.ID), patch)
	return err
}

func (e *Engine) createOnLocal(ctx context.Context, remote model.Task) error {
	// remote.ID is the remote-resolved id snapshotBoth indexed this task
	// under; CreateTask must preserve it so the next pass's indexByID
	// keys line up on both sides instead of minting an unrelated
	// locally-sequential id and duplicating the task forever.
	now := time.Now().UTC()
	remote.LastSyncedAt = now
	remote.SyncStatus = model.SyncSynced
	_, err := e.local.CreateTask(ctx, remote)
	return err
}

func (e *Engine) pushLocalToRemote(ctx context.Context, local model.Task) error {
	if _, err := e.remote.UpdateTask(ctx, idString(local.ID), local); err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err := e.local.UpdateTask(ctx, idString(local.ID), model.Task{LastSyncedAt: now, SyncStatus: model.SyncSynced})
	return err
}

func (e *Engine) pullRemoteToLocal(ctx context.Context, local, remote model.Task) error {
	patch := remote
	patch.LastSyncedAt = time.Now().UTC()
	patch.SyncStatus = model.SyncSynced
	_, err := e.local.UpdateTask(ctx, idString(local.ID), patch)
	return err
}

func (e *Engine) markLocalError(ctx context.Context, id int64, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, _ = e.local.UpdateTask(ctx, idString(id), model.Task{SyncStatus: model.SyncError, LastSyncError: msg})
}

func (e *Engine) recordConflict(id int64, local, remote model.Task) {
	c := &model.Conflict{
		TaskID:         id,
		DetectedAt:     time.Now().UTC(),
		LocalSnapshot:  local,
		RemoteSnapshot: remote,
	}
	e.conflicts[id] = c
	e.Events.Emit(events.Event{Kind: events.ConflictDetected, Conflict: c})
}

func (e *Engine) snapshotConflicts() map[int64]*model.Conflict {
	out := make(map[int64]*model.Conflict, len(e.conflicts))
	for id, c := range e.conflicts {
		out[id] = c
	}
	return out
}

func idString(id int64) string { return fmt.Sprintf("%d", id) }

// SyncTask force-syncs a single task. It fetches both sides; if only one
// exists, creates on the other; if both exist, applies the same
// conflict/newer logic SyncAll uses.
func (e *Engine) SyncTask(ctx context.Context, id int64) (*TaskSyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idStr := idString(id)
	localRef, localErr := e.local.GetTask(ctx, idStr)
	remoteRef, remoteErr := e.remote.GetTask(ctx, idStr)

	localExists := localErr == nil && localRef.Task != nil
	remoteExists := remoteErr == nil && remoteRef.Task != nil

	switch {
	case localExists && !remoteExists:
		if err := e.createOnRemote(ctx, *localRef.Task); err != nil {
			return &TaskSyncResult{TaskID: id, Action: ActionCreatedInRemote, Success: false, Err: err}, err
		}
		return &TaskSyncResult{TaskID: id, Action: ActionCreatedInRemote, Success: true}, nil

	case !localExists && remoteExists:
		if err := e.createOnLocal(ctx, *remoteRef.Task); err != nil {
			return &TaskSyncResult{TaskID: id, Action: ActionCreatedInLocal, Success: false, Err: err}, err
		}
		return &TaskSyncResult{TaskID: id, Action: ActionCreatedInLocal, Success: true}, nil

	case localExists && remoteExists:
		conflict, localWins := detectConflict(*localRef.Task, *remoteRef.Task)
		if conflict {
			e.recordConflict(id, *localRef.Task, *remoteRef.Task)
			c := e.conflicts[id]
			return &TaskSyncResult{TaskID: id, Action: ActionConflictDetected, Success: true, Conflict: c}, nil
		}
		if localWins {
			if err := e.pushLocalToRemote(ctx, *localRef.Task); err != nil {
				return &TaskSyncResult{TaskID: id, Action: ActionUpdatedRemoteFromLocal, Success: false, Err: err}, err
			}
			return &TaskSyncResult{TaskID: id, Action: ActionUpdatedRemoteFromLocal, Success: true}, nil
		}
		if err := e.pullRemoteToLocal(ctx, *localRef.Task, *remoteRef.Task); err != nil {
			return &TaskSyncResult{TaskID: id, Action: ActionUpdatedLocalFromRemote, Success: false, Err: err}, err
		}
		return &TaskSyncResult{TaskID: id, Action: ActionUpdatedLocalFromRemote, Success: true}, nil

	default:
		return &TaskSyncResult{TaskID: id, Action: ActionNoop, Success: false, Err: telemetry.New(telemetry.KindNotFound, "SyncTask", fmt.Sprintf("task %d not found on either side", id))}, nil
	}
}

// ErrNoSuchConflict is returned when ResolveConflict targets an id with no
// live conflict record.
var ErrNoSuchConflict = telemetry.New(telemetry.KindNotFound, "ResolveConflict", "no conflict recorded for this task")

// ResolveConflict resolves the live conflict for id under strategy,
// writing the winning record to both adapters. Calling it twice for the
// same id fails with ErrNoSuchConflict on the second call (idempotent).
func (e *Engine) ResolveConflict(ctx context.Context, id int64, strategy Strategy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLocked(ctx, id, strategy)
}

func (e *Engine) resolveLocked(ctx context.Context, id int64, strategy Strategy) error {
	c, ok := e.conflicts[id]
	if !ok {
		return ErrNoSuchConflict
	}

	var winner model.Task
	switch strategy {
	case StrategyLocalWins:
		winner = c.LocalSnapshot
	case StrategyRemoteWins:
		winner = c.RemoteSnapshot
	case StrategyNewestWins:
		if c.RemoteSnapshot.EffectiveRemoteModified().After(c.LocalSnapshot.EffectiveLocalModified()) {
			winner = c.RemoteSnapshot
		} else {
			winner = c.LocalSnapshot
		}
	default:
		return telemetry.New(telemetry.KindConfig, "resolveLocked", fmt.Sprintf("unsupported strategy %q for explicit resolution", strategy))
	}

	now := time.Now().UTC()
	winner.SyncStatus = model.SyncSynced
	winner.LastSyncedAt = now

	idStr := idString(id)
	if _, err := e.local.UpdateTask(ctx, idStr, winner); err != nil {
		return err
	}
	if _, err := e.remote.UpdateTask(ctx, idStr, winner); err != nil {
		return err
	}

	delete(e.conflicts, id)

	resolution := model.ResolutionManual
	switch strategy {
	case StrategyLocalWins:
		resolution = model.ResolutionLocalWins
	case StrategyRemoteWins:
		resolution = model.ResolutionRemoteWins
	case StrategyNewestWins:
		resolution = model.ResolutionNewestWins
	}
	c.Resolution = resolution
	c.ResolvedAt = now

	e.Events.Emit(events.Event{Kind: events.ConflictResolved, Conflict: c})
	return nil
}

// Conflicts returns the live (unresolved) conflict set.
func (e *Engine) Conflicts() []model.Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Conflict, 0, len(e.conflicts))
	for _, c := range e.conflicts {
		out = append(out, *c)
	}
	return out
}
