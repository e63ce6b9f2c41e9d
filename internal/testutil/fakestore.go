// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"todochat/internal/store"
)

// FakeStore is an in-memory implementation of store.Store for testing.
// Documents keep insertion order. Every mutation publishes a fresh snapshot
// to subscribers, like a real backend.
type FakeStore struct {
	mu     sync.Mutex
	docs   map[string][]store.Document // collection -> documents
	nextID int
	bc     *store.Broadcaster

	// Error injection for testing
	ListErr      error
	SubscribeErr error
	AddErr       error
	UpdateErr    error
	DeleteErr    error

	// AddHook, if set, runs before every Add; a non-nil error fails the Add.
	AddHook func(collection string, fields store.Fields) error

	// Call counters
	Adds    int
	Updates int
	Deletes int
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		docs: make(map[string][]store.Document),
		bc:   store.NewBroadcaster(),
	}
}

// Seed inserts a document with a fixed id without counting it as an Add.
func (f *FakeStore) Seed(collection, id string, fields store.Fields) {
	f.mu.Lock()
	f.docs[collection] = append(f.docs[collection], store.Document{ID: id, Fields: fields.Clone()})
	snap := f.snapshotLocked(collection)
	f.mu.Unlock()
	f.bc.Publish(collection, snap)
}

// Docs returns the current documents of a collection.
func (f *FakeStore) Docs(collection string) store.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(collection)
}

// List implements store.Store.
func (f *FakeStore) List(ctx context.Context, collection string) (store.Snapshot, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Docs(collection), nil
}

// Subscribe implements store.Store.
func (f *FakeStore) Subscribe(ctx context.Context, collection string) (*store.Subscription, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.bc.Subscribe(ctx, collection, f.Docs(collection)), nil
}

// Add implements store.Store.
func (f *FakeStore) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if f.AddErr != nil {
		return "", f.AddErr
	}
	if f.AddHook != nil {
		if err := f.AddHook(collection, fields); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	f.Adds++
	f.nextID++
	id := fmt.Sprintf("doc%d", f.nextID)
	f.docs[collection] = append(f.docs[collection], store.Document{ID: id, Fields: fields.Clone()})
	snap := f.snapshotLocked(collection)
	f.mu.Unlock()

	f.bc.Publish(collection, snap)
	return id, nil
}

// Update implements store.Store.
func (f *FakeStore) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}

	f.mu.Lock()
	f.Updates++
	idx := f.indexLocked(collection, id)
	if idx < 0 {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	doc := f.docs[collection][idx]
	f.docs[collection][idx] = store.Document{ID: id, Fields: doc.Fields.Merge(fields)}
	snap := f.snapshotLocked(collection)
	f.mu.Unlock()

	f.bc.Publish(collection, snap)
	return nil
}

// Delete implements store.Store.
func (f *FakeStore) Delete(ctx context.Context, collection, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}

	f.mu.Lock()
	f.Deletes++
	idx := f.indexLocked(collection, id)
	if idx < 0 {
		f.mu.Unlock()
		return nil
	}
	docs := f.docs[collection]
	f.docs[collection] = append(docs[:idx:idx], docs[idx+1:]...)
	snap := f.snapshotLocked(collection)
	f.mu.Unlock()

	f.bc.Publish(collection, snap)
	return nil
}

func (f *FakeStore) indexLocked(collection, id string) int {
	for i, doc := range f.docs[collection] {
		if doc.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeStore) snapshotLocked(collection string) store.Snapshot {
	return store.Snapshot(f.docs[collection]).Clone()
}

// BatchingFakeStore is a FakeStore that also implements store.Batcher.
type BatchingFakeStore struct {
	*FakeStore

	BatchErr error
	Batches  int
}

// NewBatchingFakeStore creates an empty BatchingFakeStore.
func NewBatchingFakeStore() *BatchingFakeStore {
	return &BatchingFakeStore{FakeStore: NewFakeStore()}
}

// Batch implements store.Batcher. Either every op applies or none does.
func (b *BatchingFakeStore) Batch(ctx context.Context, collection string, ops []store.Op) error {
	if b.BatchErr != nil {
		return b.BatchErr
	}

	f := b.FakeStore
	f.mu.Lock()
	b.Batches++
	docs := store.Snapshot(f.docs[collection]).Clone()
	for _, op := range ops {
		idx := -1
		for i, doc := range docs {
			if doc.ID == op.ID {
				idx = i
				break
			}
		}
		switch op.Kind {
		case store.OpUpdate:
			if idx < 0 {
				f.mu.Unlock()
				return store.ErrNotFound
			}
			docs[idx].Fields = docs[idx].Fields.Merge(op.Fields)
		case store.OpDelete:
			if idx >= 0 {
				docs = append(docs[:idx:idx], docs[idx+1:]...)
			}
		}
	}
	f.docs[collection] = docs
	snap := f.snapshotLocked(collection)
	f.mu.Unlock()

	f.bc.Publish(collection, snap)
	return nil
}
