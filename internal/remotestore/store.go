// Package remotestore implements the remote board adapter: CRUD against a
// Monday-style board of items with arbitrary-id columns, column/status
// mapping, and a short-lived whole-board cache. Grounded on
// backend/todoist/backend.go's method shapes, generalized from Todoist's
// fixed fields to the spec's configurable column mapping.
package remotestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasksync/internal/adapter"
	"tasksync/internal/events"
	"tasksync/internal/model"
	"tasksync/internal/remotestore/transport"
	"tasksync/internal/telemetry"
)

// ColumnMapping names the board's column ids for each logical field. Title
// is not listed: the remote store always exposes it as the item's name.
type ColumnMapping struct {
	Status       string
	Description  string
	Details      string
	Priority     string
	TestStrategy string
	Dependencies string
	// TaskID is optional; when configured and populated on an item, it is
	// authoritative over the item's own remote id (spec.md §9).
	TaskID string
}

// Config configures a Store instance.
type Config struct {
	BoardID       string
	ColumnMapping ColumnMapping
	CacheTTL      time.Duration
}

// boardItem is the wire shape of one board record.
type boardItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ColumnValues map[string]string `json:"columnValues"`
	Subitems     []boardItem       `json:"subitems,omitempty"`
	LastModified string            `json:"lastModified,omitempty"`
}

// Store is the remote board adapter.
type Store struct {
	cfg       Config
	transport *transport.Client
	cache     *boardCache

	Events events.Hub
}

var _ adapter.Adapter = (*Store)(nil)

// New builds a Store against the given transport and config.
func New(tc *transport.Client, cfg Config) *Store {
	return &Store{
		cfg:       cfg,
		transport: tc,
		cache:     newBoardCache(cfg.CacheTTL),
	}
}

// Initialize probes connection and board access.
func (s *Store) Initialize(ctx context.Context) error {
	if s.cfg.BoardID == "" {
		return telemetry.New(telemetry.KindConfig, "Initialize", "boardId is required")
	}
	return s.transport.Ping(ctx, "/boards/"+s.cfg.BoardID)
}

// GetTasks hits the cache if fresh, otherwise performs a full board fetch.
func (s *Store) GetTasks(ctx context.Context, f adapter.Filter) ([]model.Task, error) {
	tasks, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := tasks[:0]
	for _, t := range tasks {
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
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// snapshot returns the cached board if fresh, else fetches, maps, and
// caches it.
func (s *Store) snapshot(ctx context.Context) ([]model.Task, error) {
	if cached, ok := s.cache.get(); ok {
		return cached, nil
	}

	var items []boardItem
	endpoint := fmt.Sprintf("/boards/%s/items", s.cfg.BoardID)
	if err := s.transport.Do(ctx, "GET", endpoint, nil, &items); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, s.toTask(item))
	}

	s.cache.set(tasks)
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

// toTask maps a boardItem to a model.Task using the configured column
// mapping, preferring the custom taskId column over the item's own id
// when both are present and populated.
func (s *Store) toTask(item boardItem) model.Task {
	t := model.Task{
		RemoteItemID: item.ID,
		Title:        item.Name,
	}

	if m := s.cfg.ColumnMapping; m.Status != "" {
		t.Status = labelToStatus(item.ColumnValues[m.Status])
	} else {
		t.Status = model.StatusPending
	}
	if m := s.cfg.ColumnMapping; m.Priority != "" {
		t.Priority = labelToPriority(item.ColumnValues[m.Priority])
	}
	if m := s.cfg.ColumnMapping; m.Description != "" {
		t.Description = item.ColumnValues[m.Description]
	}
	if m := s.cfg.ColumnMapping; m.Details != "" {
		t.Details = item.ColumnValues[m.Details]
	}
	if m := s.cfg.ColumnMapping; m.TestStrategy != "" {
		t.TestStrategy = item.ColumnValues[m.TestStrategy]
	}
	if m := s.cfg.ColumnMapping; m.Dependencies != "" {
		t.Dependencies = parseDependencies(item.ColumnValues[m.Dependencies])
	}

	t.ID = s.resolveTaskID(item)

	for _, sub := range item.Subitems {
		st := model.Subtask{
			ParentID:     t.ID,
			Title:        sub.Name,
			RemoteItemID: sub.ID,
		}
		if m := s.cfg.ColumnMapping; m.Status != "" {
			st.Status = labelToStatus(sub.ColumnValues[m.Status])
		}
		if subID, err := strconv.ParseInt(s.customID(sub), 10, 64); err == nil {
			st.SubID = subID
		}
		t.Subtasks = append(t.Subtasks, st)
	}

	t.LastModifiedRemote = parseRemoteTimestamp(item.LastModified)
	return t
}

// resolveTaskID applies the custom-taskId-wins-over-item-id precedence.
func (s *Store) resolveTaskID(item boardItem) int64 {
	if custom := s.customID(item); custom != "" {
		if id, err := strconv.ParseInt(custom, 10, 64); err == nil {
			return id
		}
	}
	if id, err := strconv.ParseInt(item.ID, 10, 64); err == nil {
		return id
	}
	return 0
}

func (s *Store) customID(item boardItem) string {
	if s.cfg.ColumnMapping.TaskID == "" {
		return ""
	}
	return item.ColumnValues[s.cfg.ColumnMapping.TaskID]
}

func parseDependencies(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func formatDependencies(deps []int64) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return strings.Join(parts, ",")
}

func parseRemoteTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// GetTask resolves id (numeric or dotted) against the cached/fetched board.
func (s *Store) GetTask(ctx context.Context, id string) (adapter.TaskRef, error) {
	tasks, err := s.snapshot(ctx)
	if err != nil {
		return adapter.TaskRef{}, err
	}

	parentID, subID, isSub, perr := splitID(id)
	if perr != nil {
		return adapter.TaskRef{}, telemetry.New(telemetry.KindNotFound, "GetTask", perr.Error())
	}

	for _, t := range tasks {
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

func splitID(id string) (parentID, subID int64, isSub bool, err error) {
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

// CreateTask creates the item by name, then writes all configured columns
// in a single update, assigning the remote item id into the result.
func (s *Store) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	var created boardItem
	endpoint := fmt.Sprintf("/boards/%s/items", s.cfg.BoardID)
	if err := s.transport.Do(ctx, "POST", endpoint, map[string]string{"name": t.Title}, &created); err != nil {
		return model.Task{}, err
	}

	t.RemoteItemID = created.ID
	if err := s.writeColumns(ctx, created.ID, t); err != nil {
		return model.Task{}, err
	}

	s.cache.invalidate()
	result := t
	result.ID = s.resolveTaskID(boardItem{ID: created.ID, ColumnValues: s.columnValues(t)})
	s.Events.Emit(events.Event{Kind: events.TaskCreated, Task: &result})
	return result, nil
}

// writeColumns pushes every configured column's value for t to the remote
// item identified by remoteItemID.
func (s *Store) writeColumns(ctx context.Context, remoteItemID string, t model.Task) error {
	endpoint := fmt.Sprintf("/boards/%s/items/%s/columns", s.cfg.BoardID, remoteItemID)
	return s.transport.Do(ctx, "PATCH", endpoint, s.columnValues(t), nil)
}

func (s *Store) columnValues(t model.Task) map[string]string {
	values := map[string]string{}
	m := s.cfg.ColumnMapping
	if m.Status != "" {
		values[m.Status] = statusToLabel(t.Status)
	}
	if m.Priority != "" {
		values[m.Priority] = priorityToLabel(t.Priority)
	}
	if m.Description != "" {
		values[m.Description] = t.Description
	}
	if m.Details != "" {
		values[m.Details] = t.Details
	}
	if m.TestStrategy != "" {
		values[m.TestStrategy] = t.TestStrategy
	}
	if m.Dependencies != "" {
		values[m.Dependencies] = formatDependencies(t.Dependencies)
	}
	if m.TaskID != "" && t.ID != 0 {
		values[m.TaskID] = strconv.FormatInt(t.ID, 10)
	}
	return values
}

// UpdateTask issues per-column updates; a title change goes through a
// dedicated rename call.
func (s *Store) UpdateTask(ctx context.Context, id string, patch model.Task) (model.Task, error) {
	ref, err := s.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if ref.Task == nil {
		return model.Task{}, telemetry.New(telemetry.KindNotFound, "UpdateTask", fmt.Sprintf("task %s not found", id))
	}

	merged := mergeTaskPatch(*ref.Task, patch)

	if patch.Title != "" && patch.Title != ref.Task.Title {
		endpoint := fmt.Sprintf("/boards/%s/items/%s/name", s.cfg.BoardID, ref.Task.RemoteItemID)
		if err := s.transport.Do(ctx, "PATCH", endpoint, map[string]string{"name": patch.Title}, nil); err != nil {
			return model.Task{}, err
		}
	}

	if err := s.writeColumns(ctx, ref.Task.RemoteItemID, merged); err != nil {
		return model.Task{}, err
	}

	s.cache.invalidate()
	s.Events.Emit(events.Event{Kind: events.TaskUpdated, Task: &merged})
	return merged, nil
}

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
	return merged
}

// DeleteTask issues the delete mutation for the item.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	ref, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if ref.Task == nil {
		return telemetry.New(telemetry.KindNotFound, "DeleteTask", fmt.Sprintf("task %s not found", id))
	}

	endpoint := fmt.Sprintf("/boards/%s/items/%s", s.cfg.BoardID, ref.Task.RemoteItemID)
	if err := s.transport.Do(ctx, "DELETE", endpoint, nil, nil); err != nil {
		return err
	}

	s.cache.invalidate()
	s.Events.Emit(events.Event{Kind: events.TaskDeleted, Task: ref.Task})
	return nil
}

// GetSubtasks returns parentID's subitems mapped to Subtask.
func (s *Store) GetSubtasks(ctx context.Context, parentID int64) ([]model.Subtask, error) {
	ref, err := s.GetTask(ctx, strconv.FormatInt(parentID, 10))
	if err != nil {
		return nil, err
	}
	if ref.Task == nil {
		return nil, telemetry.New(telemetry.KindNotFound, "GetSubtasks", fmt.Sprintf("task %d not found", parentID))
	}
	return append([]model.Subtask(nil), ref.Task.Subtasks...), nil
}

// CreateSubtask creates a subitem under the parent item id.
func (s *Store) CreateSubtask(ctx context.Context, parentID int64, st model.Subtask) (model.Subtask, error) {
	ref, err := s.GetTask(ctx, strconv.FormatInt(parentID, 10))
	if err != nil {
		return model.Subtask{}, err
	}
	if ref.Task == nil {
		return model.Subtask{}, telemetry.New(telemetry.KindNotFound, "CreateSubtask", fmt.Sprintf("task %d not found", parentID))
	}

	var created boardItem
	endpoint := fmt.Sprintf("/boards/%s/items/%s/subitems", s.cfg.BoardID, ref.Task.RemoteItemID)
	if err := s.transport.Do(ctx, "POST", endpoint, map[string]string{"name": st.Title}, &created); err != nil {
		return model.Subtask{}, err
	}

	st.ParentID = parentID
	st.RemoteItemID = created.ID

	columns := map[string]string{}
	if m := s.cfg.ColumnMapping; m.Status != "" {
		columns[m.Status] = statusToLabel(st.Status)
	}
	columnsEndpoint := fmt.Sprintf("/boards/%s/items/%s/columns", s.cfg.BoardID, created.ID)
	if err := s.transport.Do(ctx, "PATCH", columnsEndpoint, columns, nil); err != nil {
		return model.Subtask{}, err
	}

	s.cache.invalidate()
	s.Events.Emit(events.Event{Kind: events.SubtaskCreated, Subtask: &st})
	return st, nil
}

// UpdateSubtask issues per-column updates against the subitem.
func (s *Store) UpdateSubtask(ctx context.Context, parentID, subID int64, patch model.Subtask) (model.Subtask, error) {
	ref, err := s.GetTask(ctx, fmt.Sprintf("%d.%d", parentID, subID))
	if err != nil {
		return model.Subtask{}, err
	}
	if ref.Subtask == nil {
		return model.Subtask{}, telemetry.New(telemetry.KindNotFound, "UpdateSubtask", fmt.Sprintf("subtask %d.%d not found", parentID, subID))
	}

	merged := *ref.Subtask
	if patch.Title != "" {
		merged.Title = patch.Title
	}
	if patch.Status != "" {
		merged.Status = patch.Status
	}
	if patch.Priority != "" {
		merged.Priority = patch.Priority
	}

	columns := map[string]string{}
	if m := s.cfg.ColumnMapping; m.Status != "" {
		columns[m.Status] = statusToLabel(merged.Status)
	}
	endpoint := fmt.Sprintf("/boards/%s/items/%s/columns", s.cfg.BoardID, merged.RemoteItemID)
	if err := s.transport.Do(ctx, "PATCH", endpoint, columns, nil); err != nil {
		return model.Subtask{}, err
	}

	s.cache.invalidate()
	s.Events.Emit(events.Event{Kind: events.SubtaskUpdated, Subtask: &merged})
	return merged, nil
}

// DeleteSubtask issues the delete mutation for the subitem.
func (s *Store) DeleteSubtask(ctx context.Context, parentID, subID int64) error {
	ref, err := s.GetTask(ctx, fmt.Sprintf("%d.%d", parentID, subID))
	if err != nil {
		return err
	}
	if ref.Subtask == nil {
		return telemetry.New(telemetry.KindNotFound, "DeleteSubtask", fmt.Sprintf("subtask %d.%d not found", parentID, subID))
	}

	endpoint := fmt.Sprintf("/boards/%s/items/%s", s.cfg.BoardID, ref.Subtask.RemoteItemID)
	if err := s.transport.Do(ctx, "DELETE", endpoint, nil, nil); err != nil {
		return err
	}

	s.cache.invalidate()
	s.Events.Emit(events.Event{Kind: events.SubtaskDeleted, Subtask: ref.Subtask})
	return nil
}

// SaveTasks is rejected: this adapter has no bulk-replace endpoint.
func (s *Store) SaveTasks(ctx context.Context, tasks []model.Task) error {
	return telemetry.Wrap(telemetry.KindNotFound, "SaveTasks", adapter.ErrUnsupportedOperation)
}

// Validate confirms the board is reachable.
func (s *Store) Validate(ctx context.Context) error {
	return s.Initialize(ctx)
}

// ProviderInfo identifies this adapter.
func (s *Store) ProviderInfo() adapter.ProviderInfo {
	return adapter.ProviderInfo{Name: "remote", DisplayName: fmt.Sprintf("[board:%s]", s.cfg.BoardID)}
}
