package googletasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tasks "google.golang.org/api/tasks/v1"

	"todochat/internal/backend/googletasks"
	"todochat/internal/store"
)

const todos = "users/me/todos"

// fakeAPI serves the parts of the Tasks REST API the store uses.
type fakeAPI struct {
	mu     sync.Mutex
	lists  []*tasks.TaskList
	items  map[string][]*tasks.Task // list id -> tasks
	nextID int
	status int // forced status for task calls, when non-zero
}

func newFakeAPI(lists ...string) *fakeAPI {
	f := &fakeAPI{items: map[string][]*tasks.Task{}}
	for _, title := range lists {
		f.nextID++
		f.lists = append(f.lists, &tasks.TaskList{Id: fmt.Sprintf("L%d", f.nextID), Title: title})
	}
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	p := strings.TrimPrefix(r.URL.Path, "/tasks/v1/")
	parts := strings.Split(p, "/")

	switch {
	case p == "users/@me/lists" && r.Method == http.MethodGet:
		writeJSON(w, &tasks.TaskLists{Items: f.lists})

	case p == "users/@me/lists" && r.Method == http.MethodPost:
		var l tasks.TaskList
		_ = json.NewDecoder(r.Body).Decode(&l)
		f.nextID++
		l.Id = fmt.Sprintf("L%d", f.nextID)
		f.lists = append(f.lists, &l)
		writeJSON(w, &l)

	case len(parts) >= 3 && parts[0] == "lists" && parts[2] == "tasks":
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"code":` + fmt.Sprint(f.status) + `,"message":"forced"}}`))
			return
		}
		f.serveTasks(w, r, parts[1], parts[3:])

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) serveTasks(w http.ResponseWriter, r *http.Request, listID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, &tasks.Tasks{Items: f.items[listID]})
		case http.MethodPost:
			var t tasks.Task
			_ = json.NewDecoder(r.Body).Decode(&t)
			f.nextID++
			t.Id = fmt.Sprintf("T%d", f.nextID)
			f.items[listID] = append(f.items[listID], &t)
			writeJSON(w, &t)
		}
		return
	}

	id := rest[0]
	idx := -1
	for i, t := range f.items[listID] {
		if t.Id == id {
			idx = i
		}
	}
	if idx < 0 {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, f.items[listID][idx])
	case http.MethodPatch:
		var patch tasks.Task
		_ = json.NewDecoder(r.Body).Decode(&patch)
		t := f.items[listID][idx]
		if patch.Title != "" {
			t.Title = patch.Title
		}
		if patch.Status != "" {
			t.Status = patch.Status
		}
		t.Notes = patch.Notes
		writeJSON(w, t)
	case http.MethodDelete:
		f.items[listID] = append(f.items[listID][:idx], f.items[listID][idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func newStore(t *testing.T, api *fakeAPI, opts ...googletasks.Option) *googletasks.Store {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts = append(opts, googletasks.WithEndpoint(srv.URL+"/"))
	s, err := googletasks.NewWithHTTPClient(context.Background(), srv.Client(), "Chores", opts...)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_ResolvesListCaseInsensitively(t *testing.T) {
	api := newFakeAPI("Work", "chores")
	s := newStore(t, api)

	if _, err := s.Add(context.Background(), todos, store.Fields{"text": "Sweep"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(api.items["L2"]) != 1 {
		t.Errorf("task should land in the existing list, got %v", api.items)
	}
	if len(api.lists) != 2 {
		t.Errorf("no list should be created, got %d lists", len(api.lists))
	}
}

func TestStore_CreatesMissingList(t *testing.T) {
	api := newFakeAPI("Work")
	s := newStore(t, api)

	if _, err := s.List(context.Background(), todos); err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(api.lists) != 2 || api.lists[1].Title != "Chores" {
		t.Errorf("expected Chores to be created, got %+v", api.lists)
	}
}

func TestStore_RoundTripsFields(t *testing.T) {
	api := newFakeAPI("Chores")
	created := time.Date(2024, 4, 1, 8, 30, 0, 0, time.UTC)
	s := newStore(t, api)
	ctx := context.Background()

	id, err := s.Add(ctx, todos, store.Fields{
		"text":      "Buy milk",
		"completed": false,
		"order":     2,
		"createdAt": store.FormatTime(created),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	snap, err := s.List(ctx, todos)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("snapshot = %v", snap)
	}
	f := snap[0].Fields
	if f.String("text") != "Buy milk" || f.Bool("completed") {
		t.Errorf("fields = %v", f)
	}
	if n, ok := f.Int("order"); !ok || n != 2 {
		t.Errorf("order = %d, %v", n, ok)
	}
	if ts, ok := f.Time("createdAt"); !ok || !ts.Equal(created) {
		t.Errorf("createdAt = %v, %v", ts, ok)
	}
}

func TestStore_UpdateKeepsNotes(t *testing.T) {
	api := newFakeAPI("Chores")
	api.items["L1"] = []*tasks.Task{{Id: "x", Title: "Call mom", Status: "needsAction", Notes: "after 6pm\ntodochat: order=0"}}
	s := newStore(t, api)
	ctx := context.Background()

	if err := s.Update(ctx, todos, "x", store.Fields{"completed": true, "order": 3}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := api.items["L1"][0]
	if got.Status != "completed" {
		t.Errorf("status = %q", got.Status)
	}
	if got.Title != "Call mom" {
		t.Errorf("title = %q", got.Title)
	}
	if !strings.HasPrefix(got.Notes, "after 6pm\n") || !strings.Contains(got.Notes, "order=3") {
		t.Errorf("notes = %q", got.Notes)
	}
}

func TestStore_NotFoundSemantics(t *testing.T) {
	api := newFakeAPI("Chores")
	s := newStore(t, api)
	ctx := context.Background()

	if err := s.Update(ctx, todos, "missing", store.Fields{"completed": true}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, todos, "missing"); err != nil {
		t.Errorf("Delete of unknown id should succeed, got %v", err)
	}
}

func TestStore_AuthError(t *testing.T) {
	api := newFakeAPI("Chores")
	s := newStore(t, api)
	ctx := context.Background()
	if _, err := s.List(ctx, todos); err != nil {
		t.Fatal(err)
	}

	api.mu.Lock()
	api.status = http.StatusUnauthorized
	api.mu.Unlock()
	if _, err := s.List(ctx, todos); !errors.Is(err, googletasks.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestStore_RejectsChatCollections(t *testing.T) {
	s := newStore(t, newFakeAPI("Chores"))
	_, err := s.Add(context.Background(), "users/me/chat_messages", store.Fields{"text": "hi"})
	if !errors.Is(err, store.ErrUnsupportedCollection) {
		t.Errorf("expected ErrUnsupportedCollection, got %v", err)
	}
}

func TestStore_SubscribePollsForChanges(t *testing.T) {
	api := newFakeAPI("Chores")
	s := newStore(t, api, googletasks.WithPollInterval(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := s.Subscribe(ctx, todos)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if first := receive(t, sub); len(first) != 0 {
		t.Fatalf("initial snapshot = %v", first)
	}

	// A change made in another client.
	api.mu.Lock()
	api.items["L1"] = append(api.items["L1"], &tasks.Task{Id: "ext", Title: "From phone", Status: "needsAction"})
	api.mu.Unlock()

	got := receive(t, sub)
	if len(got) != 1 || got[0].Fields.String("text") != "From phone" {
		t.Errorf("snapshot = %v", got)
	}
}

func receive(t *testing.T, sub *store.Subscription) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
