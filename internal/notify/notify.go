// Package notify turns successive task list snapshots into at most one
// event per transition.
package notify

import (
	"fmt"

	"todochat/internal/task"
)

// Kind classifies a transition.
type Kind int

const (
	None Kind = iota
	AllRemoved
	Removed
	Added
)

func (k Kind) String() string {
	switch k {
	case AllRemoved:
		return "all-removed"
	case Removed:
		return "removed"
	case Added:
		return "added"
	default:
		return "none"
	}
}

// Event describes an actionable transition. Task is set for Removed and
// Added; Count is set for AllRemoved.
type Event struct {
	Kind  Kind
	Task  task.Task
	Count int
}

// Prompt renders the synthetic message sent to the persona.
func (e Event) Prompt() string {
	switch e.Kind {
	case AllRemoved:
		return fmt.Sprintf("All %d tasks were just cleared from the list. React to the empty list with a short, commanding comment.", e.Count)
	case Removed:
		return fmt.Sprintf("A task was just eliminated from the list: %q. Acknowledge the deletion with a short, commanding comment.", e.Task.Text)
	case Added:
		return fmt.Sprintf("A new task has been added to the list: %q. Please comment on this addition.", e.Task.Text)
	default:
		return ""
	}
}

// Notifier compares each snapshot with the one before it. It is not safe
// for concurrent use.
type Notifier struct {
	previous []task.Task
	primed   bool
}

// New returns an unprimed Notifier. The first snapshot it observes only
// seeds its state.
func New() *Notifier {
	return &Notifier{}
}

// Primed reports whether a snapshot has been observed.
func (n *Notifier) Primed() bool {
	return n.primed
}

// Observe classifies the transition from the previous snapshot to current
// and records current as the new previous, whatever the outcome.
//
// Tasks are compared by id only. When several tasks vanish in one
// transition, only the first in previous order is reported.
func (n *Notifier) Observe(current []task.Task) (Event, bool) {
	return n.ObserveExcluding(current, nil)
}

// ObserveExcluding is Observe, except that an added task for which skip
// returns true is never the one reported. If every added task is skipped
// the transition is not actionable.
func (n *Notifier) ObserveExcluding(current []task.Task, skip func(id string) bool) (Event, bool) {
	prev := n.previous
	primed := n.primed
	n.previous = append([]task.Task(nil), current...)
	n.primed = true

	if !primed {
		return Event{}, false
	}
	return classify(prev, current, skip)
}

func classify(prev, current []task.Task, skip func(id string) bool) (Event, bool) {
	switch {
	case len(prev) > 0 && len(current) == 0:
		return Event{Kind: AllRemoved, Count: len(prev)}, true

	case len(current) < len(prev):
		ids := idSet(current)
		for _, t := range prev {
			if !ids[t.ID] {
				return Event{Kind: Removed, Task: t}, true
			}
		}

	case len(current) > len(prev):
		ids := idSet(prev)
		for _, t := range current {
			if ids[t.ID] || (skip != nil && skip(t.ID)) {
				continue
			}
			return Event{Kind: Added, Task: t}, true
		}
	}
	return Event{}, false
}

func idSet(tasks []task.Task) map[string]bool {
	set := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		set[t.ID] = true
	}
	return set
}
