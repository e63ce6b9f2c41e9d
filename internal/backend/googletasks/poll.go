package googletasks

import (
	"context"
	"fmt"
	"time"

	"todochat/internal/store"
)

// startPoll starts the poller on the first Subscribe.
func (s *Store) startPoll(collection string, initial store.Snapshot) {
	s.pollOnce.Do(func() {
		s.stopPoll = make(chan struct{})
		s.pollDone = make(chan struct{})
		s.mu.Lock()
		s.lastSig = signature(initial)
		s.mu.Unlock()
		go s.pollLoop(collection)
	})
}

func (s *Store) pollLoop(collection string) {
	defer close(s.pollDone)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPoll:
			return
		case <-ticker.C:
			if !s.bc.HasSubscribers(collection) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), APITimeout)
			s.publish(ctx, collection)
			cancel()
		}
	}
}

// publish lists the collection and broadcasts it when it changed since the
// last broadcast.
func (s *Store) publish(ctx context.Context, collection string) {
	if !s.bc.HasSubscribers(collection) {
		return
	}
	snap, err := s.List(ctx, collection)
	if err != nil {
		s.log.Warn("task list refresh failed", "err", err)
		return
	}

	sig := signature(snap)
	s.mu.Lock()
	changed := sig != s.lastSig
	s.lastSig = sig
	s.mu.Unlock()

	if changed {
		s.bc.Publish(collection, snap)
	}
}

// signature is a stable rendering of a snapshot; fmt prints map keys sorted.
func signature(snap store.Snapshot) string {
	return fmt.Sprint(snap)
}
