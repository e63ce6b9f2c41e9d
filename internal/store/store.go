// Package store defines the backend-agnostic document collection interface.
//
// A collection is an unordered set of documents addressed by id. Every
// backend delivers full snapshots on subscription (never deltas); callers
// derive ordering from document fields.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Update when the document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrUnsupportedCollection is returned by backends that only serve some collections.
var ErrUnsupportedCollection = errors.New("collection not supported by backend")

// Store is the interface every document backend implements.
// Task and chat logic never import a backend package directly.
type Store interface {
	// List returns the current snapshot of a collection.
	List(ctx context.Context, collection string) (Snapshot, error)

	// Subscribe returns a subscription that first delivers the current
	// snapshot and then a fresh full snapshot after every change.
	// The subscription ends when ctx is cancelled or Close is called.
	Subscribe(ctx context.Context, collection string) (*Subscription, error)

	// Add creates a document and returns its store-assigned id.
	Add(ctx context.Context, collection string, fields Fields) (string, error)

	// Update merges fields into an existing document.
	// Returns ErrNotFound if the id is unknown.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document. Deleting an unknown id is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// OpKind identifies a batched write.
type OpKind int

const (
	// OpUpdate merges Fields into the document ID.
	OpUpdate OpKind = iota
	// OpDelete removes the document ID.
	OpDelete
)

// Op is one write inside a Batch.
type Op struct {
	Kind   OpKind
	ID     string
	Fields Fields
}

// Batcher is implemented by stores that can apply several writes atomically.
type Batcher interface {
	Batch(ctx context.Context, collection string, ops []Op) error
}

// Snapshot is a full point-in-time copy of a collection.
type Snapshot []Document

// Document is a stored document.
type Document struct {
	ID     string
	Fields Fields
}

// Clone returns a deep-enough copy of the snapshot (field maps are copied).
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, doc := range s {
		out[i] = Document{ID: doc.ID, Fields: doc.Fields.Clone()}
	}
	return out
}

// Collection names.
const (
	Todos        = "todos"
	ChatMessages = "chat_messages"
)

// UserCollection returns the per-user path of a collection, e.g.
// "users/local/todos".
func UserCollection(user, name string) string {
	if user == "" {
		user = "local"
	}
	return "users/" + user + "/" + name
}
