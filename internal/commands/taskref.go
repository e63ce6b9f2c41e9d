package commands

import (
	"errors"
	"fmt"
	"strconv"

	"todochat/internal/task"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ErrOutOfRange indicates a task number past the end of the list.
var ErrOutOfRange = errors.New("task number out of range")

// ParseTaskRef parses a task number: a 1-based position in the sorted
// task list, as printed by list.
func ParseTaskRef(arg string) (int, error) {
	if arg == "" {
		return 0, ErrTaskRefRequired
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid task reference: %s", arg)
		}
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task reference: %s", arg)
	}
	return n, nil
}

// ParseTaskRefs parses exactly want task numbers from args.
func ParseTaskRefs(args []string, want int) ([]int, error) {
	if len(args) < want {
		return nil, ErrTaskRefRequired
	}
	if len(args) > want {
		return nil, fmt.Errorf("unexpected argument: %s", args[want])
	}
	refs := make([]int, want)
	for i, arg := range args {
		n, err := ParseTaskRef(arg)
		if err != nil {
			return nil, err
		}
		refs[i] = n
	}
	return refs, nil
}

// taskAt returns task number n of the sorted list.
func taskAt(tasks []task.Task, n int) (task.Task, error) {
	if n < 1 || n > len(tasks) {
		return task.Task{}, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return tasks[n-1], nil
}
