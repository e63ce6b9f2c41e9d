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
	Register(&MvCmd{})
}

// MvCmd implements the mv command.
type MvCmd struct{}

func (c *MvCmd) Name() string      { return "mv" }
func (c *MvCmd) Aliases() []string { return []string{"move"} }
func (c *MvCmd) Synopsis() string  { return "Move a task to another position" }
func (c *MvCmd) Usage() string     { return "todochat mv <from> <to>" }
func (c *MvCmd) NeedsApp() bool    { return true }

func (c *MvCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MvCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	refs, err := ParseTaskRefs(args, 2)
	if err != nil {
		return Report(errOut, err)
	}

	tasks, err := loadTasks(ctx, a)
	if err != nil {
		return Report(errOut, err)
	}
	for _, n := range refs {
		if _, err := taskAt(tasks, n); err != nil {
			return Report(errOut, err)
		}
	}

	a.Tasks.BeginReorder()
	if err := a.Tasks.MoveTask(refs[0]-1, refs[1]-1); err != nil {
		a.Tasks.CancelReorder()
		return Report(errOut, err)
	}
	if err := a.Tasks.CommitReorder(ctx); err != nil {
		return Report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
