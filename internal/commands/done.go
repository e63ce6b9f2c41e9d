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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. Running it on a completed task
// reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle a task's completion" }
func (c *DoneCmd) Usage() string     { return "todochat done <n>" }
func (c *DoneCmd) NeedsApp() bool    { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	refs, err := ParseTaskRefs(args, 1)
	if err != nil {
		return Report(errOut, err)
	}

	tasks, err := loadTasks(ctx, a)
	if err != nil {
		return Report(errOut, err)
	}
	t, err := taskAt(tasks, refs[0])
	if err != nil {
		return Report(errOut, err)
	}

	if err := a.Tasks.ToggleTask(ctx, t.ID, t.Completed); err != nil {
		return Report(errOut, err)
	}

	if !cfg.Quiet {
		if t.Completed {
			fmt.Fprintln(out, "reopened")
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
