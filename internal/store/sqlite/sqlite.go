// Package sqlite implements store.Store on a local SQLite database.
//
// All collections share one table; each document's fields are stored as a
// JSON object. Subscriptions are served from an in-process broadcaster and
// kept fresh across processes by a file watcher (see watch.go).
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"todochat/internal/store"
)

const (
	// DefaultPollInterval is how often subscriptions re-check the database
	// for commits made by other processes when no file event arrives.
	DefaultPollInterval = 3 * time.Second

	// busyTimeoutMillis bounds how long a write waits on another writer.
	busyTimeoutMillis = 5000
)

// Store implements store.Store and store.Batcher.
type Store struct {
	db   *sql.DB
	path string
	bc   *store.Broadcaster
	log  *log.Logger
	now  func() time.Time

	pollInterval time.Duration

	watchOnce   sync.Once
	stopWatch   chan struct{}
	watchDone   chan struct{}
	dataVersion int64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for background watcher errors.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps PRAGMA data_version meaningful and serializes writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{
		db:           db,
		path:         path,
		bc:           store.NewBroadcaster(),
		log:          log.New(io.Discard),
		now:          time.Now,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	if err := s.configurePragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close stops the watcher, ends all subscriptions and closes the database.
func (s *Store) Close() error {
	if s.stopWatch != nil {
		close(s.stopWatch)
		<-s.watchDone
	}
	s.bc.Close()
	return s.db.Close()
}

func (s *Store) configurePragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMillis),
		"PRAGMA synchronous=NORMAL;",
	}
	for _, q := range pragmas {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("set pragma %q: %w", q, err)
		}
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			fields TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS documents_by_collection
			ON documents (collection, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// List implements store.Store. Documents come back in insertion order.
func (s *Store) List(ctx context.Context, collection string) (store.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields
		FROM documents
		WHERE collection = ?
		ORDER BY created_at ASC, rowid ASC;
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	snap := store.Snapshot{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		snap = append(snap, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document rows: %w", err)
	}
	return snap, nil
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, collection string) (*store.Subscription, error) {
	snap, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	s.startWatch()
	return s.bc.Subscribe(ctx, collection, snap), nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	raw, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := store.FormatTime(s.now())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?);
	`, collection, id, raw, now, now)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	s.publish(ctx, collection)
	return id, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.updateTx(ctx, tx, collection, id, fields); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	s.publish(ctx, collection)
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?;`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.publish(ctx, collection)
	}
	return nil
}

// Batch implements store.Batcher: all ops commit in one transaction.
func (s *Store) Batch(ctx context.Context, collection string, ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range ops {
		switch op.Kind {
		case store.OpUpdate:
			if err := s.updateTx(ctx, tx, collection, op.ID, op.Fields); err != nil {
				return err
			}
		case store.OpDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?;`, collection, op.ID); err != nil {
				return fmt.Errorf("delete document: %w", err)
			}
		default:
			return fmt.Errorf("unknown batch op kind %d", op.Kind)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.publish(ctx, collection)
	return nil
}

func (s *Store) updateTx(ctx context.Context, tx *sql.Tx, collection, id string, fields store.Fields) error {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT fields FROM documents WHERE collection = ? AND id = ?;`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	current, err := decodeFields(raw)
	if err != nil {
		return fmt.Errorf("decode document %s: %w", id, err)
	}
	merged, err := encodeFields(current.Merge(fields))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET fields = ?, updated_at = ?
		WHERE collection = ? AND id = ?;
	`, merged, store.FormatTime(s.now()), collection, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// publish sends a fresh snapshot of collection to its subscribers.
func (s *Store) publish(ctx context.Context, collection string) {
	if !s.bc.HasSubscribers(collection) {
		return
	}
	snap, err := s.List(ctx, collection)
	if err != nil {
		s.log.Warn("snapshot refresh failed", "collection", collection, "err", err)
		return
	}
	s.bc.Publish(collection, snap)
}

func encodeFields(fields store.Fields) (string, error) {
	if fields == nil {
		fields = store.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(raw string) (store.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var fields store.Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = store.Fields{}
	}
	return fields, nil
}
