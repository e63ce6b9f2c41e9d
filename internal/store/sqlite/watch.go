package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startWatch begins watching for commits made by other connections, so
// subscribers see writes from other todochat processes. It runs once, on
// the first Subscribe.
func (s *Store) startWatch() {
	s.watchOnce.Do(func() {
		s.stopWatch = make(chan struct{})
		s.watchDone = make(chan struct{})

		if v, err := s.readDataVersion(context.Background()); err == nil {
			s.dataVersion = v
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			s.log.Warn("file watcher unavailable, polling only", "err", err)
			watcher = nil
		} else if err := watcher.Add(filepath.Dir(s.path)); err != nil {
			s.log.Warn("cannot watch database directory, polling only", "dir", filepath.Dir(s.path), "err", err)
			_ = watcher.Close()
			watcher = nil
		}

		go s.watchLoop(watcher)
	})
}

func (s *Store) watchLoop(watcher *fsnotify.Watcher) {
	defer close(s.watchDone)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		errs = watcher.Errors
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	base := filepath.Base(s.path)
	for {
		select {
		case <-s.stopWatch:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// The main file, -wal and -shm all share the database base name.
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.refreshIfChanged()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Warn("database watcher error", "err", err)
		case <-ticker.C:
			s.refreshIfChanged()
		}
	}
}

// refreshIfChanged republishes every subscribed collection when another
// connection has committed since the last check.
func (s *Store) refreshIfChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := s.readDataVersion(ctx)
	if err != nil {
		s.log.Debug("read data_version failed", "err", err)
		return
	}
	if v == s.dataVersion {
		return
	}
	s.dataVersion = v

	for _, collection := range s.bc.Collections() {
		s.publish(ctx, collection)
	}
}

// readDataVersion returns SQLite's per-connection change counter, which
// moves only when a different connection commits.
func (s *Store) readDataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, "PRAGMA data_version;").Scan(&v)
	return v, err
}
