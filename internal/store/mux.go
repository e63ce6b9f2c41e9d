package store

import (
	"context"
	"path"
)

// Mux routes collections to backends by the last segment of the collection
// path ("users/local/todos" routes on "todos"). Unrouted collections go to
// the fallback store.
type Mux struct {
	fallback Store
	routes   map[string]Store
}

// NewMux creates a Mux that sends everything to fallback until routes are added.
func NewMux(fallback Store) *Mux {
	return &Mux{
		fallback: fallback,
		routes:   make(map[string]Store),
	}
}

// Route sends collections whose last path segment is name to s.
func (m *Mux) Route(name string, s Store) {
	m.routes[name] = s
}

// Resolve returns the backend serving collection.
func (m *Mux) Resolve(collection string) Store {
	if s, ok := m.routes[path.Base(collection)]; ok {
		return s
	}
	return m.fallback
}

func (m *Mux) List(ctx context.Context, collection string) (Snapshot, error) {
	return m.Resolve(collection).List(ctx, collection)
}

func (m *Mux) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	return m.Resolve(collection).Subscribe(ctx, collection)
}

func (m *Mux) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	return m.Resolve(collection).Add(ctx, collection, fields)
}

func (m *Mux) Update(ctx context.Context, collection, id string, fields Fields) error {
	return m.Resolve(collection).Update(ctx, collection, id, fields)
}

func (m *Mux) Delete(ctx context.Context, collection, id string) error {
	return m.Resolve(collection).Delete(ctx, collection, id)
}

// resolver is implemented by stores that delegate per collection.
type resolver interface {
	Resolve(collection string) Store
}

// BatcherFor returns the Batcher serving collection, if the backend behind s
// supports batched writes for it.
func BatcherFor(s Store, collection string) (Batcher, bool) {
	if r, ok := s.(resolver); ok {
		s = r.Resolve(collection)
	}
	b, ok := s.(Batcher)
	return b, ok
}
