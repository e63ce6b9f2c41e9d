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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "todochat rm <n>" }
func (c *RmCmd) NeedsApp() bool    { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
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

	if err := a.Tasks.RemoveTask(ctx, t.ID); err != nil {
		return Report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
