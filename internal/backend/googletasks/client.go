// Package googletasks implements store.Store for the todos collection on
// top of a Google Tasks list.
//
// Task text maps to the title and completion to the status. Ordering and
// creation time have no Tasks API field, so they travel as a metadata line
// in the notes. Chat collections are not served.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todochat/internal/config"
	"todochat/internal/store"
)

const (
	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// DefaultPollInterval is how often subscriptions re-read the list.
	DefaultPollInterval = 5 * time.Second

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// ErrAuth is returned when the stored token is no longer accepted.
var ErrAuth = errors.New("token expired or revoked (run: todochat login)")

// Store serves the todos collection from one Google Tasks list.
type Store struct {
	svc       *tasks.Service
	listTitle string
	log       *log.Logger
	now       func() time.Time
	bc        *store.Broadcaster

	pollInterval time.Duration
	clientOpts   []option.ClientOption

	mu     sync.Mutex
	listID string

	pollOnce sync.Once
	stopPoll chan struct{}
	pollDone chan struct{}
	lastSig  string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for background polling errors.
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

// WithClock overrides the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEndpoint points the client at a different API root (for testing).
func WithEndpoint(url string) Option {
	return func(s *Store) { s.clientOpts = append(s.clientOpts, option.WithEndpoint(url)) }
}

// New creates a Store using the OAuth client and token in cfg's directory.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}

	// The token source refreshes automatically.
	httpClient := oauth2.NewClient(ctx, oc.TokenSource(ctx, tok))
	return NewWithHTTPClient(ctx, httpClient, cfg.Settings.GoogleTasks.List, opts...)
}

// NewWithHTTPClient creates a Store with a custom HTTP client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listTitle string, opts ...Option) (*Store, error) {
	s := &Store{
		listTitle:    strings.TrimSpace(listTitle),
		log:          log.New(io.Discard),
		now:          time.Now,
		bc:           store.NewBroadcaster(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.listTitle == "" {
		s.listTitle = config.DefaultGoogleList
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, s.clientOpts...)
	svc, err := tasks.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	s.svc = svc
	return s, nil
}

// Close stops polling and ends all subscriptions.
func (s *Store) Close() error {
	if s.stopPoll != nil {
		close(s.stopPoll)
		<-s.pollDone
	}
	s.bc.Close()
	return nil
}

func checkCollection(collection string) error {
	if path.Base(collection) != store.Todos {
		return fmt.Errorf("%w: %s", store.ErrUnsupportedCollection, collection)
	}
	return nil
}

// list returns the id of the configured list, creating the list when no
// list has that title. Titles match case-insensitively.
func (s *Store) list(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listID != "" {
		return s.listID, nil
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	want := strings.ToLower(s.listTitle)
	var found []string
	err := s.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, l := range resp.Items {
			if strings.ToLower(strings.TrimSpace(l.Title)) == want {
				found = append(found, l.Id)
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}

	switch len(found) {
	case 0:
		created, err := s.svc.Tasklists.Insert(&tasks.TaskList{Title: s.listTitle}).Context(ctx).Do()
		if err != nil {
			return "", wrapError(err)
		}
		s.log.Info("created task list", "title", s.listTitle)
		s.listID = created.Id
	case 1:
		s.listID = found[0]
	default:
		return "", fmt.Errorf("ambiguous list name: %s", s.listTitle)
	}
	return s.listID, nil
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, collection string) (store.Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	listID, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	snap := store.Snapshot{}
	err = s.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				if t.Deleted {
					continue
				}
				snap = append(snap, store.Document{ID: t.Id, Fields: toFields(t)})
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return snap, nil
}

// Subscribe implements store.Store. Changes made elsewhere show up at the
// next poll.
func (s *Store) Subscribe(ctx context.Context, collection string) (*store.Subscription, error) {
	snap, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	s.startPoll(collection, snap)
	return s.bc.Subscribe(ctx, collection, snap), nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	listID, err := s.list(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := fields.Time(fieldCreatedAt); !ok {
		fields = fields.Merge(store.Fields{fieldCreatedAt: store.FormatTime(s.now())})
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := s.svc.Tasks.Insert(listID, fromFields(&tasks.Task{}, fields)).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	s.publish(ctx, collection)
	return created.Id, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	listID, err := s.list(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	current, err := s.svc.Tasks.Get(listID, id).Context(ctx).Do()
	if err != nil {
		return wrapError(err)
	}
	patch := fromFields(&tasks.Task{Notes: current.Notes}, toFields(current).Merge(fields))
	if _, err := s.svc.Tasks.Patch(listID, id, patch).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	s.publish(ctx, collection)
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	listID, err := s.list(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	err = wrapError(s.svc.Tasks.Delete(listID, id).Context(ctx).Do())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.publish(ctx, collection)
	return nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuth
		case http.StatusNotFound:
			return store.ErrNotFound
		}
	}

	// The oauth2 transport reports refresh failures outside googleapi.Error.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return ErrAuth
	}
	return err
}
