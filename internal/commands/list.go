package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todochat/internal/app"
	"todochat/internal/config"
	"todochat/internal/exitcode"
	"todochat/internal/output"
	"todochat/internal/task"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todochat` (no args) and `todochat list`.
type ListCmd struct {
	pending bool
}

// SetPending sets the pending-only filter (for testing).
func (c *ListCmd) SetPending(pending bool) {
	c.pending = pending
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "todochat list [--pending]" }
func (c *ListCmd) NeedsApp() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.pending, "pending", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := loadTasks(ctx, a)
	if err != nil {
		return Report(errOut, err)
	}

	// Numbers stay positions in the full list so they can be passed to
	// done, rm and mv even when filtered.
	shown := 0
	for i, t := range tasks {
		if c.pending && t.Completed {
			continue
		}
		output.FormatTask(out, i+1, t)
		shown++
	}

	if shown == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

// loadTasks reads the task collection and returns it in display order.
func loadTasks(ctx context.Context, a *app.App) ([]task.Task, error) {
	if err := a.Tasks.Refresh(ctx); err != nil {
		return nil, err
	}
	return a.Tasks.Tasks(), nil
}
