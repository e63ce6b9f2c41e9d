package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"todochat/internal/store"
)

// ErrNotPermutation is returned by ReorderTasks when the supplied list is
// not a full permutation of the known tasks.
var ErrNotPermutation = errors.New("reorder requires every task exactly once")

// Controller owns the task collection's business rules: add, toggle,
// delete, delete-all and reorder. It keeps the latest authoritative
// snapshot plus an optional reorder overlay.
//
// Writes go straight to the store; the controller's list is refreshed by
// Apply (from a subscription) or Refresh (a pull).
type Controller struct {
	store      store.Store
	collection string
	log        *log.Logger
	now        func() time.Time

	mu      sync.Mutex
	tasks   []Task
	overlay *Overlay
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller for the tasks stored in collection.
func NewController(s store.Store, collection string, opts ...Option) *Controller {
	c := &Controller{
		store:      s,
		collection: collection,
		log:        log.New(io.Discard),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collection returns the collection path the controller writes to.
func (c *Controller) Collection() string {
	return c.collection
}

// Tasks returns a sorted copy of the authoritative task list.
func (c *Controller) Tasks() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.tasks)
}

// Visible returns the reorder overlay while one is active, otherwise Tasks.
func (c *Controller) Visible() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay != nil {
		return c.overlay.Tasks()
	}
	return clone(c.tasks)
}

// Apply installs an authoritative snapshot. An active overlay is discarded
// when the snapshot's task count differs from it, so a stale ordering never
// hides tasks added or removed elsewhere.
func (c *Controller) Apply(snap store.Snapshot) []Task {
	tasks := FromSnapshot(snap)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay != nil && c.overlay.Len() != len(tasks) {
		c.log.Debug("discarding reorder overlay", "overlay", c.overlay.Len(), "remote", len(tasks))
		c.overlay = nil
	}
	c.tasks = tasks
	return clone(tasks)
}

// Refresh pulls the current snapshot from the store and applies it.
func (c *Controller) Refresh(ctx context.Context) error {
	snap, err := c.store.List(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	c.Apply(snap)
	return nil
}

// Watch subscribes to the collection and applies every snapshot, calling
// onChange with the new list. It blocks until ctx is done or the
// subscription ends.
func (c *Controller) Watch(ctx context.Context, onChange func([]Task)) error {
	sub, err := c.store.Subscribe(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("subscribe to tasks: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-sub.C():
			if !ok {
				return ctx.Err()
			}
			tasks := c.Apply(snap)
			if onChange != nil {
				onChange(tasks)
			}
		}
	}
}

// AddTask creates a task at the end of the list. Blank text is a no-op
// and returns the zero Task.
func (c *Controller) AddTask(ctx context.Context, text string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, nil
	}

	c.mu.Lock()
	order := len(c.tasks)
	c.mu.Unlock()

	t := Task{
		Text:      text,
		Order:     order,
		HasOrder:  true,
		CreatedAt: c.now(),
	}
	id, err := c.store.Add(ctx, c.collection, t.Fields())
	if err != nil {
		return Task{}, fmt.Errorf("add task: %w", err)
	}
	t.ID = id

	// Optimistic insert until the next snapshot arrives.
	c.mu.Lock()
	if indexOf(c.tasks, id) < 0 {
		c.tasks = append(c.tasks, t)
		Sort(c.tasks)
	}
	c.mu.Unlock()

	c.log.Debug("task added", "id", id, "order", order)
	return t, nil
}

// ToggleTask flips the completed flag. Unknown ids are ignored.
func (c *Controller) ToggleTask(ctx context.Context, id string, currentCompleted bool) error {
	err := c.store.Update(ctx, c.collection, id, store.Fields{FieldCompleted: !currentCompleted})
	if errors.Is(err, store.ErrNotFound) {
		c.log.Debug("toggle of unknown task ignored", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}

	c.mu.Lock()
	if i := indexOf(c.tasks, id); i >= 0 {
		c.tasks[i].Completed = !currentCompleted
	}
	c.mu.Unlock()
	return nil
}

// RemoveTask deletes a task. Removing an unknown id is a no-op.
func (c *Controller) RemoveTask(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, c.collection, id); err != nil {
		return fmt.Errorf("remove task: %w", err)
	}
	c.mu.Lock()
	c.tasks = without(c.tasks, map[string]bool{id: true})
	c.mu.Unlock()
	return nil
}

// RemoveAllTasks deletes every task the controller knows about and returns
// how many were removed. Deletes are independent and not atomic unless the
// store supports batches; a failure leaves the remaining tasks in place.
func (c *Controller) RemoveAllTasks(ctx context.Context) (int, error) {
	tasks := c.Tasks()
	if len(tasks) == 0 {
		return 0, nil
	}

	if b, ok := store.BatcherFor(c.store, c.collection); ok {
		ops := make([]store.Op, len(tasks))
		for i, t := range tasks {
			ops[i] = store.Op{Kind: store.OpDelete, ID: t.ID}
		}
		if err := b.Batch(ctx, c.collection, ops); err != nil {
			return 0, fmt.Errorf("remove all tasks: %w", err)
		}
		c.mu.Lock()
		c.tasks = without(c.tasks, idSet(tasks))
		c.mu.Unlock()
		return len(tasks), nil
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		removed = make(map[string]bool, len(tasks))
	)
	for _, t := range tasks {
		g.Go(func() error {
			if err := c.store.Delete(ctx, c.collection, t.ID); err != nil {
				return err
			}
			mu.Lock()
			removed[t.ID] = true
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	c.mu.Lock()
	c.tasks = without(c.tasks, removed)
	c.mu.Unlock()

	if err != nil {
		return len(removed), fmt.Errorf("remove all tasks: %w", err)
	}
	return len(removed), nil
}

// ReorderTasks assigns order = index to each task of ordered. ordered must
// contain every known task exactly once.
func (c *Controller) ReorderTasks(ctx context.Context, ordered []Task) error {
	c.mu.Lock()
	current := clone(c.tasks)
	c.mu.Unlock()

	if !isPermutation(current, ordered) {
		return ErrNotPermutation
	}

	if b, ok := store.BatcherFor(c.store, c.collection); ok {
		ops := make([]store.Op, len(ordered))
		for i, t := range ordered {
			ops[i] = store.Op{Kind: store.OpUpdate, ID: t.ID, Fields: store.Fields{FieldOrder: i}}
		}
		if err := b.Batch(ctx, c.collection, ops); err != nil {
			return fmt.Errorf("reorder tasks: %w", err)
		}
	} else {
		var g errgroup.Group
		for i, t := range ordered {
			g.Go(func() error {
				return c.store.Update(ctx, c.collection, t.ID, store.Fields{FieldOrder: i})
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("reorder tasks: %w", err)
		}
	}

	reordered := clone(ordered)
	for i := range reordered {
		reordered[i].Order = i
		reordered[i].HasOrder = true
	}
	c.mu.Lock()
	c.tasks = reordered
	c.mu.Unlock()
	return nil
}

// BeginReorder starts a reorder overlay from the current list. Calling it
// while an overlay is active keeps the existing one.
func (c *Controller) BeginReorder() *Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay == nil {
		c.overlay = newOverlay(c.tasks)
	}
	return c.overlay
}

// Reordering reports whether an overlay is active.
func (c *Controller) Reordering() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay != nil
}

// MoveTask moves an item inside the active overlay, starting one if needed.
func (c *Controller) MoveTask(from, to int) error {
	o := c.BeginReorder()
	c.mu.Lock()
	defer c.mu.Unlock()
	return o.Move(from, to)
}

// CommitReorder persists the overlay ordering and drops the overlay.
func (c *Controller) CommitReorder(ctx context.Context) error {
	c.mu.Lock()
	o := c.overlay
	c.mu.Unlock()
	if o == nil {
		return nil
	}

	if err := c.ReorderTasks(ctx, o.Tasks()); err != nil {
		return err
	}

	c.mu.Lock()
	if c.overlay == o {
		c.overlay = nil
	}
	c.mu.Unlock()
	return nil
}

// CancelReorder drops the overlay without writing anything.
func (c *Controller) CancelReorder() {
	c.mu.Lock()
	c.overlay = nil
	c.mu.Unlock()
}

func clone(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func indexOf(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func idSet(tasks []Task) map[string]bool {
	set := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		set[t.ID] = true
	}
	return set
}

func without(tasks []Task, ids map[string]bool) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !ids[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func isPermutation(current, ordered []Task) bool {
	if len(current) != len(ordered) {
		return false
	}
	want := idSet(current)
	seen := make(map[string]bool, len(ordered))
	for _, t := range ordered {
		if !want[t.ID] || seen[t.ID] {
			return false
		}
		seen[t.ID] = true
	}
	return true
}
