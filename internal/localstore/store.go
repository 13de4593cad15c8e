// Package localstore implements the file-backed adapter: a JSON document
// of tasks keyed by an integer id assigned by this store. It is grounded
// on backend/fileBackend.go's method shape and backend/sqliteBackend.go's
// locking discipline (reload only when the file has changed underneath
// the process).
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasksync/internal/adapter"
	"tasksync/internal/events"
	"tasksync/internal/model"
	"tasksync/internal/telemetry"
)

// document is the on-disk shape: {"tasks": [...]}.
type document struct {
	Tasks []model.Task `json:"tasks"`
}

// Store is the local file-backed adapter.
type Store struct {
	path string

	mu      sync.RWMutex
	tasks   []model.Task
	modTime time.Time
	loaded  bool

	Events events.Hub
}

var _ adapter.Adapter = (*Store)(nil)

// New returns a Store bound to path. Initialize must be called before use.
func New(path string) *Store {
	return &Store{path: path}
}

// Initialize ensures the parent directory and document exist, then loads.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return telemetry.Wrap(telemetry.KindIO, "Initialize", err)
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.writeDocumentLocked(document{Tasks: []model.Task{}}); err != nil {
			return err
		}
	}

	return s.reloadLocked()
}

// reloadLocked loads the document from disk if its mtime has advanced
// since the last load. Caller must hold s.mu.
func (s *Store) reloadLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "reload", err)
	}

	if s.loaded && !info.ModTime().After(s.modTime) {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "reload", err)
	}

	var doc document
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return telemetry.Wrap(telemetry.KindIO, "reload", err)
		}
	}

	s.tasks = doc.Tasks
	s.modTime = info.ModTime()
	s.loaded = true
	return nil
}

// writeDocumentLocked writes doc atomically via temp file + rename and
// updates the in-memory snapshot and remembered mtime. Caller must hold
// s.mu.
func (s *Store) writeDocumentLocked(doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "write", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return telemetry.Wrap(telemetry.KindIO, "write", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return telemetry.Wrap(telemetry.KindIO, "write", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "write", err)
	}

	s.tasks = doc.Tasks
	s.modTime = info.ModTime()
	s.loaded = true
	return nil
}

// GetTasks returns a clone of tasks matching f.
func (s *Store) GetTasks(ctx context.Context, f adapter.Filter) ([]model.Task, error) {
	s.mu.Lock()
	if err := s.reloadLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		snapshot[i] = t.Clone()
	}
	s.mu.Unlock()

	out := snapshot[:0]
	for _, t := range snapshot {
		if !matchesFilter(t, f) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func matchesFilter(t model.Task, f adapter.Filter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == t.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// GetTask resolves id, which may be numeric ("7") or dotted ("7.2") for a
// subtask.
func (s *Store) GetTask(ctx context.Context, id string) (adapter.TaskRef, error) {
	parentID, subID, isSub, err := parseID(id)
	if err != nil {
		return adapter.TaskRef{}, telemetry.New(telemetry.KindNotFound, "GetTask", err.Error())
	}

	s.mu.Lock()
	if err := s.reloadLocked(); err != nil {
		s.mu.Unlock()
		return adapter.TaskRef{}, err
	}
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID != parentID {
			continue
		}
		if !isSub {
			clone := t.Clone()
			return adapter.TaskRef{Task: &clone}, nil
		}
		for _, st := range t.Subtasks {
			if st.SubID == subID {
				stCopy := st
				return adapter.TaskRef{Subtask: &stCopy}, nil
			}
		}
		return adapter.TaskRef{}, telemetry.New(telemetry.KindNotFound, "GetTask", fmt.Sprintf("subtask %s not found", id))
	}
	return adapter.TaskRef{}, telemetry.New(telemetry.KindNotFound, "GetTask", fmt.Sprintf("task %s not found", id))
}

// parseID splits a dotted id into its parent/sub components. A bare
// numeric string is treated as a top-level task id.
func parseID(id string) (parentID, subID int64, isSub bool, err error) {
	parts := strings.SplitN(id, ".", 2)
	parentID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid task id %q", id)
	}
	if len(parts) == 1 {
		return parentID, 0, false, nil
	}
	subID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid subtask id %q", id)
	}
	return parentID, subID, true, nil
}

// CreateTask assigns the next id and validates dependencies before
// appending and flushing to disk. A caller that already knows the id a
// task must carry (the sync engine ingesting a remote-only task, which
// must preserve the id it indexed the remote snapshot under) may set
// t.ID to a positive value instead; CreateTask then honors it rather
// than assigning a new one, failing if that id is already taken.
func (s *Store) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return model.Task{}, err
	}
	if t.Title == "" {
		return model.Task{}, telemetry.New(telemetry.KindIntegrity, "CreateTask", "title is required")
	}

	if t.ID > 0 {
		for _, existing := range s.tasks {
			if existing.ID == t.ID {
				return model.Task{}, telemetry.New(telemetry.KindIntegrity, "CreateTask", fmt.Sprintf("task %d already exists", t.ID))
			}
		}
	} else {
		t.ID = nextID(s.tasks)
	}
	if err := validateDependencies(s.tasks, t.ID, t.Dependencies); err != nil {
		return model.Task{}, err
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	now := time.Now().UTC()
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	t.LastModifiedLocal = now

	updated := append(append([]model.Task(nil), s.tasks...), t)
	if err := s.writeDocumentLocked(document{Tasks: updated}); err != nil {
		return model.Task{}, err
	}

	s.Events.Emit(events.Event{Kind: events.TaskCreated, Task: &t})
	return t.Clone(), nil
}

func nextID(tasks []model.Task) int64 {
	var max int64
	for _, t := range tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func validateDependencies(tasks []model.Task, selfID int64, deps []int64) error {
	ids := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}
	for _, d := range deps {
		if d == selfID {
			return telemetry.New(telemetry.KindIntegrity, "validateDependencies", fmt.Sprintf("task %d cannot depend on itself", selfID))
		}
		if !ids[d] {
			return telemetry.New(telemetry.KindIntegrity, "validateDependencies", fmt.Sprintf("dependency %d does not exist", d))
		}
	}
	return nil
}

// UpdateTask merges patch over the existing record, identified by a
// numeric or dotted id.
func (s *Store) UpdateTask(ctx context.Context, id string, patch model.Task) (model.Task, error) {
	parentID, subID, isSub, err := parseID(id)
	if err != nil {
		return model.Task{}, telemetry.New(telemetry.KindNotFound, "UpdateTask", err.Error())
	}
	if isSub {
		return model.Task{}, telemetry.New(telemetry.KindNotFound, "UpdateTask", "use UpdateSubtask for dotted ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return model.Task{}, err
	}

	updated := append([]model.Task(nil), s.tasks...)
	idx := -1
	for i, t := range updated {
		if t.ID == parentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Task{}, telemetry.New(telemetry.KindNotFound, "UpdateTask", fmt.Sprintf("task %d not found", parentID))
	}

	merged := mergeTaskPatch(updated[idx], patch)
	if patch.Dependencies != nil {
		if err := validateDependencies(updated, parentID, merged.Dependencies); err != nil {
			return model.Task{}, err
		}
	}
	merged.LastModifiedLocal = time.Now().UTC()
	updated[idx] = merged

	if err := s.writeDocumentLocked(document{Tasks: updated}); err != nil {
		return model.Task{}, err
	}

	s.Events.Emit(events.Event{Kind: events.TaskUpdated, Task: &merged})
	return merged.Clone(), nil
}

// mergeTaskPatch overlays non-zero fields of patch onto base. Slice fields
// are replaced wholesale when present in patch (nil means "unchanged").
func mergeTaskPatch(base, patch model.Task) model.Task {
	merged := base
	if patch.Title != "" {
		merged.Title = patch.Title
	}
	if patch.Description != "" {
		merged.Description = patch.Description
	}
	if patch.Details != "" {
		merged.Details = patch.Details
	}
	if patch.TestStrategy != "" {
		merged.TestStrategy = patch.TestStrategy
	}
	if patch.Status != "" {
		merged.Status = patch.Status
	}
	if patch.Priority != "" {
		merged.Priority = patch.Priority
	}
	if patch.Dependencies != nil {
		merged.Dependencies = append([]int64(nil), patch.Dependencies...)
	}
	if patch.Subtasks != nil {
		merged.Subtasks = append([]model.Subtask(nil), patch.Subtasks...)
	}
	if !patch.LastSyncedAt.IsZero() {
		merged.LastSyncedAt = patch.LastSyncedAt
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
	return merged
}

// DeleteTask removes the task and strips the id from every sibling's
// dependencies; DeleteTaskSkipCleanup deletes without that cleanup.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.deleteTask(ctx, id, false)
}

// DeleteTaskSkipCleanup deletes without touching sibling dependency lists,
// for callers that have already reconciled dependents themselves.
func (s *Store) DeleteTaskSkipCleanup(ctx context.Context, id string) error {
	return s.deleteTask(ctx, id, true)
}

func (s *Store) deleteTask(ctx context.Context, id string, skipDependencyCleanup bool) error {
	parentID, _, isSub, err := parseID(id)
	if err != nil {
		return telemetry.New(telemetry.KindNotFound, "DeleteTask", err.Error())
	}
	if isSub {
		return telemetry.New(telemetry.KindNotFound, "DeleteTask", "use DeleteSubtask for dotted ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return err
	}

	updated := make([]model.Task, 0, len(s.tasks))
	found := false
	var deleted model.Task
	for _, t := range s.tasks {
		if t.ID == parentID {
			found = true
			deleted = t
			continue
		}
		updated = append(updated, t)
	}
	if !found {
		return telemetry.New(telemetry.KindNotFound, "DeleteTask", fmt.Sprintf("task %d not found", parentID))
	}

	if !skipDependencyCleanup {
		for i := range updated {
			updated[i].Dependencies = removeID(updated[i].Dependencies, parentID)
		}
	}

	if err := s.writeDocumentLocked(document{Tasks: updated}); err != nil {
		return err
	}

	s.Events.Emit(events.Event{Kind: events.TaskDeleted, Task: &deleted})
	return nil
}

func removeID(ids []int64, target int64) []int64 {
	if ids == nil {
		return nil
	}
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// GetSubtasks returns a clone of parentID's subtasks.
func (s *Store) GetSubtasks(ctx context.Context, parentID int64) ([]model.Subtask, error) {
	s.mu.Lock()
	if err := s.reloadLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == parentID {
			return append([]model.Subtask(nil), t.Subtasks...), nil
		}
	}
	return nil, telemetry.New(telemetry.KindNotFound, "GetSubtasks", fmt.Sprintf("task %d not found", parentID))
}

// CreateSubtask assigns subID = max(existing subtask ids of parent) + 1.
func (s *Store) CreateSubtask(ctx context.Context, parentID int64, st model.Subtask) (model.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return model.Subtask{}, err
	}

	updated := append([]model.Task(nil), s.tasks...)
	idx := -1
	for i, t := range updated {
		if t.ID == parentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Subtask{}, telemetry.New(telemetry.KindNotFound, "CreateSubtask", fmt.Sprintf("task %d not found", parentID))
	}

	st.ParentID = parentID
	st.SubID = nextSubID(updated[idx].Subtasks)
	if st.Status == "" {
		st.Status = model.StatusPending
	}
	updated[idx].Subtasks = append(append([]model.Subtask(nil), updated[idx].Subtasks...), st)
	updated[idx].LastModifiedLocal = time.Now().UTC()

	if err := s.writeDocumentLocked(document{Tasks: updated}); err != nil {
		return model.Subtask{}, err
	}

	s.Events.Emit(events.Event{Kind: events.SubtaskCreated, Subtask: &st})
	return st, nil
}

func nextSubID(subtasks []model.Subtask) int64 {
	var max int64
	for _, st := range subtasks {
		if st.SubID > max {
			max = st.SubID
		}
	}
	return max + 1
}

// UpdateSubtask merges patch over the existing subtask record.
func (s *Store) UpdateSubtask(ctx context.Context, parentID, subID int64, patch model.Subtask) (model.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return model.Subtask{}, err
	}

	updated := append([]model.Task(nil), s.tasks...)
	taskIdx := -1
	for i, t := range updated {
		if t.ID == parentID {
			taskIdx = i
			break
		}
	}
	if taskIdx < 0 {
		return model.Subtask{}, telemetry.New(telemetry.KindNotFound, "UpdateSubtask", fmt.Sprintf("task %d not found", parentID))
	}

	subs := append([]model.Subtask(nil), updated[taskIdx].Subtasks...)
	subIdx := -1
	for i, st := range subs {
		if st.SubID == subID {
			subIdx = i
			break
		}
	}
	if subIdx < 0 {
		return model.Subtask{}, telemetry.New(telemetry.KindNotFound, "UpdateSubtask", fmt.Sprintf("subtask %d.%d not found", parentID, subID))
	}

	merged := mergeSubtaskPatch(subs[subIdx], patch)
	subs[subIdx] = merged
	updated[taskIdx].Subtasks = subs
	updated[taskIdx].LastModifiedLocal = time.Now().UTC()

	if err := s.writeDocumentLocked(document{Tasks: updated}); err != nil {
		return model.Subtask{}, err
	}

	s.Events.Emit(events.Event{Kind: events.SubtaskUpdated, Subtask: &merged})
	return merged, nil
}

func mergeSubtaskPatch(base, patch model.Subtask) model.Subtask {
	merged := base
	if patch.Title != "" {
		merged.Title = patch.Title
	}
	if patch.Description != "" {
		merged.Description = patch.Description
	}
	if patch.Details != "" {
		merged.Details = patch.Details
	}
	if patch.TestStrategy != "" {
		merged.TestStrategy = patch.TestStrategy
	}
	if patch.Status != "" {
		merged.Status = patch.Status
	}
	if patch.Priority != "" {
		merged.Priority = patch.Priority
	}
	if patch.RemoteItemID != "" {
		merged.RemoteItemID = patch.RemoteItemID
	}
	return merged
}

// DeleteSubtask removes subID from parentID's subtask list.
func (s *Store) DeleteSubtask(ctx context.Context, parentID, subID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return err
	}

	updated := append([]model.Task(nil), s.tasks...)
	taskIdx := -1
	for i, t := range updated {
		if t.ID == parentID {
			taskIdx = i
			break
		}
	}
	if taskIdx < 0 {
		return telemetry.New(telemetry.KindNotFound, "DeleteSubtask", fmt.Sprintf("task %d not found", parentID))
	}

	subs := updated[taskIdx].Subtasks
	out := make([]model.Subtask, 0, len(subs))
	found := false
	var deleted model.Subtask
	for _, st := range subs {
		if st.SubID == subID {
			found = true
			deleted = st
			continue
		}
		out = append(out, st)
	}
	if !found {
		return telemetry.New(telemetry.KindNotFound, "DeleteSubtask", fmt.Sprintf("subtask %d.%d not found", parentID, subID))
	}
	updated[taskIdx].Subtasks = out
	updated[taskIdx].LastModifiedLocal = time.Now().UTC()

	if err := s.writeDocumentLocked(document{Tasks: updated}); err != nil {
		return err
	}

	s.Events.Emit(events.Event{Kind: events.SubtaskDeleted, Subtask: &deleted})
	return nil
}

// SaveTasks batch-replaces the entire document. Every entry must carry a
// non-zero id and a non-empty title.
func (s *Store) SaveTasks(ctx context.Context, tasks []model.Task) error {
	for _, t := range tasks {
		if t.ID == 0 {
			return telemetry.New(telemetry.KindIntegrity, "SaveTasks", "every task requires an id")
		}
		if t.Title == "" {
			return telemetry.New(telemetry.KindIntegrity, "SaveTasks", fmt.Sprintf("task %d requires a title", t.ID))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]model.Task(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if err := s.writeDocumentLocked(document{Tasks: sorted}); err != nil {
		return err
	}

	s.Events.Emit(events.Event{Kind: events.TasksSaved})
	return nil
}

// Validate reports whether the on-disk document still satisfies the
// uniqueness and dependency invariants.
func (s *Store) Validate(ctx context.Context) error {
	s.mu.Lock()
	if err := s.reloadLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	tasks := append([]model.Task(nil), s.tasks...)
	s.mu.Unlock()

	seen := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return telemetry.New(telemetry.KindIntegrity, "Validate", fmt.Sprintf("duplicate task id %d", t.ID))
		}
		seen[t.ID] = true
	}
	for _, t := range tasks {
		if err := validateDependencies(tasks, t.ID, t.Dependencies); err != nil {
			return err
		}
	}
	return nil
}

// ProviderInfo identifies this adapter.
func (s *Store) ProviderInfo() adapter.ProviderInfo {
	return adapter.ProviderInfo{Name: "local", DisplayName: fmt.Sprintf("[file:%s]", s.path)}
}
