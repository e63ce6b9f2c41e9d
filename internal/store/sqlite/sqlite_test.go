package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"todochat/internal/store"
	"todochat/internal/store/sqlite"
)

const todos = "users/test/todos"

func openStore(t *testing.T, path string, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "todochat.db")
	}
	s, err := sqlite.Open(path, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AddListUpdateDelete(t *testing.T) {
	s := openStore(t, "")
	ctx := context.Background()

	id, err := s.Add(ctx, todos, store.Fields{"text": "Buy milk", "completed": false, "order": 0})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatal("expected a store-assigned id")
	}

	snap, err := s.List(ctx, todos)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
	if snap[0].Fields.String("text") != "Buy milk" {
		t.Errorf("text = %q", snap[0].Fields.String("text"))
	}
	if order, ok := snap[0].Fields.Int("order"); !ok || order != 0 {
		t.Errorf("order = %d, %v", order, ok)
	}

	if err := s.Update(ctx, todos, id, store.Fields{"completed": true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ = s.List(ctx, todos)
	if !snap[0].Fields.Bool("completed") {
		t.Error("expected completed after update")
	}
	if snap[0].Fields.String("text") != "Buy milk" {
		t.Error("update must merge, not replace")
	}

	if err := s.Delete(ctx, todos, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, todos, id); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	snap, _ = s.List(ctx, todos)
	if len(snap) != 0 {
		t.Errorf("expected empty collection, got %v", snap)
	}
}

func TestStore_UpdateUnknownID(t *testing.T) {
	s := openStore(t, "")
	err := s.Update(context.Background(), todos, "missing", store.Fields{"completed": true})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListKeepsInsertionOrderAndCollections(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	s := openStore(t, "", sqlite.WithClock(clock))
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		if _, err := s.Add(ctx, todos, store.Fields{"text": text}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := s.Add(ctx, "users/test/chat_messages", store.Fields{"text": "hello"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap, err := s.List(ctx, todos)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snap) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := snap[i].Fields.String("text"); got != want {
			t.Errorf("snap[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestStore_ListOrdersSubsecondTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)
	times := []time.Time{base, base.Add(500 * time.Millisecond), base.Add(time.Second)}
	next := 0
	clock := func() time.Time {
		ts := times[next%len(times)]
		next++
		return ts
	}
	s := openStore(t, "", sqlite.WithClock(clock))
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		if _, err := s.Add(ctx, todos, store.Fields{"text": text}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	snap, err := s.List(ctx, todos)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := snap[i].Fields.String("text"); got != want {
			t.Errorf("snap[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestStore_BatchIsAtomic(t *testing.T) {
	s := openStore(t, "")
	ctx := context.Background()

	a, _ := s.Add(ctx, todos, store.Fields{"text": "a", "order": 0})
	b, _ := s.Add(ctx, todos, store.Fields{"text": "b", "order": 1})

	err := s.Batch(ctx, todos, []store.Op{
		{Kind: store.OpUpdate, ID: a, Fields: store.Fields{"order": 1}},
		{Kind: store.OpUpdate, ID: "missing", Fields: store.Fields{"order": 5}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	snap, _ := s.List(ctx, todos)
	if order, _ := snap[0].Fields.Int("order"); order != 0 {
		t.Error("failed batch must not apply partial writes")
	}

	err = s.Batch(ctx, todos, []store.Op{
		{Kind: store.OpUpdate, ID: a, Fields: store.Fields{"order": 1}},
		{Kind: store.OpUpdate, ID: b, Fields: store.Fields{"order": 0}},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	snap, _ = s.List(ctx, todos)
	for _, doc := range snap {
		order, _ := doc.Fields.Int("order")
		if doc.ID == a && order != 1 || doc.ID == b && order != 0 {
			t.Errorf("unexpected order for %s: %d", doc.ID, order)
		}
	}

	if err := s.Batch(ctx, todos, []store.Op{{Kind: store.OpDelete, ID: a}, {Kind: store.OpDelete, ID: b}}); err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	snap, _ = s.List(ctx, todos)
	if len(snap) != 0 {
		t.Errorf("expected empty collection, got %d docs", len(snap))
	}
}

func TestStore_SubscribeDeliversFullSnapshots(t *testing.T) {
	s := openStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := s.Subscribe(ctx, todos)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	first := receive(t, sub)
	if len(first) != 0 {
		t.Fatalf("expected empty initial snapshot, got %v", first)
	}

	if _, err := s.Add(ctx, todos, store.Fields{"text": "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := receive(t, sub); len(got) != 1 {
		t.Fatalf("expected 1 document, got %d", len(got))
	}
}

func TestStore_SubscribeSeesOtherConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	watcher := openStore(t, path, sqlite.WithPollInterval(50*time.Millisecond))
	writer := openStore(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := watcher.Subscribe(ctx, todos)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	receive(t, sub)

	if _, err := writer.Add(ctx, todos, store.Fields{"text": "from elsewhere"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := receive(t, sub)
	if len(got) != 1 || got[0].Fields.String("text") != "from elsewhere" {
		t.Fatalf("unexpected snapshot: %v", got)
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
