package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todochat/internal/app"
	"todochat/internal/config"
	"todochat/internal/exitcode"
)

func init() {
	Register(&ClearCmd{})
}

// ClearCmd implements the clear command.
type ClearCmd struct {
	force bool
}

// SetForce sets the force flag (for testing).
func (c *ClearCmd) SetForce(force bool) {
	c.force = force
}

func (c *ClearCmd) Name() string      { return "clear" }
func (c *ClearCmd) Aliases() []string { return nil }
func (c *ClearCmd) Synopsis() string  { return "Delete all tasks" }
func (c *ClearCmd) Usage() string     { return "todochat clear [--force]" }
func (c *ClearCmd) NeedsApp() bool    { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := loadTasks(ctx, a)
	if err != nil {
		return Report(errOut, err)
	}
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}
	if !c.force {
		fmt.Fprintf(errOut, "error: %d tasks would be deleted (use --force)\n", len(tasks))
		return exitcode.UserError
	}

	n, err := a.Tasks.RemoveAllTasks(ctx)
	if err != nil {
		// Some deletes may have landed before the failure.
		fmt.Fprintf(errOut, "error: backend error: deleted %d of %d tasks: %v\n", n, len(tasks), err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "deleted %d tasks\n", n)
	}
	return exitcode.Success
}
