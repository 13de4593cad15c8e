package remotestore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/adapter"
	"tasksync/internal/model"
	"tasksync/internal/remotestore/transport"
)

// fakeBoard is a minimal in-memory board server exercising the same
// endpoints Store calls, used instead of a real remote dependency.
type fakeBoard struct {
	mu      sync.Mutex
	nextID  int
	items   map[string]*boardItem
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{items: map[string]*boardItem{}}
}

func (f *fakeBoard) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/boards/b1/items", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			var out []boardItem
			for _, it := range f.items {
				out = append(out, *it)
			}
			json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			f.nextID++
			id := fmt.Sprintf("%d", f.nextID)
			item := &boardItem{ID: id, Name: body["name"], ColumnValues: map[string]string{}}
			f.items[id] = item
			json.NewEncoder(w).Encode(item)
		}
	})
	mux.HandleFunc("/boards/b1/items/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		// path: /boards/b1/items/<id>[/columns|/name]
		rest := r.URL.Path[len("/boards/b1/items/"):]
		var id, suffix string
		for i := 0; i < len(rest); i++ {
			if rest[i] == '/' {
				id = rest[:i]
				suffix = rest[i:]
				break
			}
		}
		if id == "" {
			id = rest
		}
		item, ok := f.items[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch {
		case suffix == "/columns" && r.Method == http.MethodPatch:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			for k, v := range body {
				item.ColumnValues[k] = v
			}
			w.WriteHeader(http.StatusNoContent)
		case suffix == "/name" && r.Method == http.MethodPatch:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			item.Name = body["name"]
			w.WriteHeader(http.StatusNoContent)
		case suffix == "" && r.Method == http.MethodDelete:
			delete(f.items, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func newTestStore(t *testing.T) (*Store, *fakeBoard) {
	t.Helper()
	board := newFakeBoard()
	srv := httptest.NewServer(board.handler())
	t.Cleanup(srv.Close)

	tc := transport.New(transport.Config{BaseURL: srv.URL, Token: "t", RatePerSecond: 1000, Burst: 1000})
	s := New(tc, Config{
		BoardID: "b1",
		ColumnMapping: ColumnMapping{
			Status:      "status_col",
			Description: "desc_col",
			TaskID:      "taskid_col",
		},
	})
	return s, board
}

func TestCreateTaskMapsStatusLabel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, model.Task{Title: "A", Status: model.StatusDone})
	require.NoError(t, err)
	assert.NotEmpty(t, created.RemoteItemID)

	tasks, err := s.GetTasks(ctx, adapter.Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusDone, tasks[0].Status)
}

func TestStatusLabelRoundTrips(t *testing.T) {
	statuses := []model.Status{
		model.StatusPending, model.StatusInProgress, model.StatusReview,
		model.StatusDone, model.StatusBlocked, model.StatusCancelled, model.StatusDeferred,
	}
	for _, s := range statuses {
		label := statusToLabel(s)
		assert.Equal(t, s, labelToStatus(label))
	}
}

func TestUnknownLabelMapsToDefaults(t *testing.T) {
	assert.Equal(t, model.StatusPending, labelToStatus("Nonsense"))
	assert.Equal(t, model.PriorityMedium, labelToPriority("Nonsense"))
}

func TestCustomTaskIDColumnWinsOverItemID(t *testing.T) {
	s, board := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A", ID: 42})
	require.NoError(t, err)

	board.mu.Lock()
	var item *boardItem
	for _, it := range board.items {
		item = it
	}
	board.mu.Unlock()
	require.NotNil(t, item)
	assert.Equal(t, "42", item.ColumnValues["taskid_col"])

	tasks, err := s.GetTasks(ctx, adapter.Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.EqualValues(t, 42, tasks[0].ID)
}

func TestSaveTasksUnsupported(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.SaveTasks(context.Background(), nil)
	require.Error(t, err)
}

func TestCacheServesFetchWithoutSecondRequest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{Title: "A"})
	require.NoError(t, err)

	first, err := s.GetTasks(ctx, adapter.Filter{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, fresh := s.cache.get()
	assert.True(t, fresh)
}
