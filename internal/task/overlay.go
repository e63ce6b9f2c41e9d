package task

import "fmt"

// Overlay is a local ordering of the task list used while a reorder is in
// progress. It is not synchronized; the Controller guards it.
type Overlay struct {
	tasks []Task
}

func newOverlay(tasks []Task) *Overlay {
	return &Overlay{tasks: clone(tasks)}
}

// Len returns the number of tasks in the overlay.
func (o *Overlay) Len() int {
	return len(o.tasks)
}

// Tasks returns a copy of the overlay ordering.
func (o *Overlay) Tasks() []Task {
	return clone(o.tasks)
}

// Move moves the task at index from to index to, shifting the tasks in
// between.
func (o *Overlay) Move(from, to int) error {
	n := len(o.tasks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d to %d: index out of range [0,%d)", from, to, n)
	}
	if from == to {
		return nil
	}
	t := o.tasks[from]
	if from < to {
		copy(o.tasks[from:to], o.tasks[from+1:to+1])
	} else {
		copy(o.tasks[to+1:from+1], o.tasks[to:from])
	}
	o.tasks[to] = t
	return nil
}
