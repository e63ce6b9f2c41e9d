// Package task holds the task model and the controller that owns the task
// collection's business rules.
package task

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"todochat/internal/store"
)

// Document field names.
const (
	FieldText      = "text"
	FieldCompleted = "completed"
	FieldOrder     = "order"
	FieldCreatedAt = "createdAt"
)

// Task represents a single task item.
type Task struct {
	ID        string
	Text      string
	Completed bool
	Order     int
	HasOrder  bool // false for tasks stored before ordering existed
	CreatedAt time.Time
}

// FromDocument decodes a stored document.
func FromDocument(doc store.Document) Task {
	t := Task{
		ID:        doc.ID,
		Text:      doc.Fields.String(FieldText),
		Completed: doc.Fields.Bool(FieldCompleted),
	}
	t.Order, t.HasOrder = doc.Fields.Int(FieldOrder)
	t.CreatedAt, _ = doc.Fields.Time(FieldCreatedAt)
	return t
}

// FromSnapshot decodes and sorts a snapshot.
func FromSnapshot(snap store.Snapshot) []Task {
	tasks := make([]Task, 0, len(snap))
	for _, doc := range snap {
		tasks = append(tasks, FromDocument(doc))
	}
	Sort(tasks)
	return tasks
}

// Fields encodes t for storage.
func (t Task) Fields() store.Fields {
	f := store.Fields{
		FieldText:      t.Text,
		FieldCompleted: t.Completed,
		FieldCreatedAt: store.FormatTime(t.CreatedAt),
	}
	if t.HasOrder {
		f[FieldOrder] = t.Order
	}
	return f
}

// Compare orders tasks by order ascending, then CreatedAt, then ID.
// Tasks without an order sort after every ordered task.
func Compare(a, b Task) int {
	if a.HasOrder != b.HasOrder {
		if a.HasOrder {
			return -1
		}
		return 1
	}
	if a.HasOrder {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort sorts tasks in place. Sorting is stable, so re-sorting a sorted
// slice leaves it unchanged.
func Sort(tasks []Task) {
	slices.SortStableFunc(tasks, Compare)
}

// IsSorted reports whether tasks is in display order.
func IsSorted(tasks []Task) bool {
	return slices.IsSortedFunc(tasks, Compare)
}

// Counts returns the number of pending and completed tasks.
func Counts(tasks []Task) (pending, done int) {
	for _, t := range tasks {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return pending, done
}

// NormalizeText is the key used to compare task texts: trimmed, lower-cased.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// FindByText returns the first task whose text matches text case-insensitively.
func FindByText(tasks []Task, text string) (Task, bool) {
	key := NormalizeText(text)
	for _, t := range tasks {
		if NormalizeText(t.Text) == key {
			return t, true
		}
	}
	return Task{}, false
}

// IDs returns the ids of tasks in order.
func IDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
