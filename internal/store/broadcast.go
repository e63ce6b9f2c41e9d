package store

import (
	"context"
	"sort"
	"sync"
)

// Subscription receives full snapshots of one collection.
// Delivery is latest-wins: a slow reader only ever sees the newest snapshot,
// never a backlog of stale ones.
type Subscription struct {
	collection string

	mu     sync.Mutex
	ch     chan Snapshot
	done   chan struct{}
	closed bool

	onClose func()
}

func newSubscription(collection string, onClose func()) *Subscription {
	return &Subscription{
		collection: collection,
		ch:         make(chan Snapshot, 1),
		done:       make(chan struct{}),
		onClose:    onClose,
	}
}

// Collection returns the subscribed collection.
func (s *Subscription) Collection() string {
	return s.collection
}

// C returns the channel snapshots are delivered on.
// It is closed when the subscription ends.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose()
	}
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
	default:
		// Drop the unread snapshot; only the newest one matters.
		select {
		case <-s.ch:
		default:
		}
		s.ch <- snap
	}
}

// Broadcaster fans snapshots out to subscribers by collection.
// Backends embed one to implement Store.Subscribe.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[int]*Subscription
	nextID int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]*Subscription)}
}

// Subscribe registers a subscriber for collection and delivers initial to it.
// The subscription is closed when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, collection string, initial Snapshot) *Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := newSubscription(collection, func() { b.remove(collection, id) })
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[int]*Subscription)
	}
	b.subs[collection][id] = sub
	b.mu.Unlock()

	sub.deliver(initial.Clone())

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

// Publish delivers snap to every subscriber of collection.
func (b *Broadcaster) Publish(collection string, snap Snapshot) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs[collection]))
	for _, sub := range b.subs[collection] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(snap.Clone())
	}
}

// HasSubscribers reports whether anyone is subscribed to collection.
func (b *Broadcaster) HasSubscribers(collection string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[collection]) > 0
}

// Collections returns the collections that currently have subscribers, sorted.
func (b *Broadcaster) Collections() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.subs))
	for name, subs := range b.subs {
		if len(subs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Close ends every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	var all []*Subscription
	for _, subs := range b.subs {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
}

func (b *Broadcaster) remove(collection string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[collection], id)
	if len(b.subs[collection]) == 0 {
		delete(b.subs, collection)
	}
}
