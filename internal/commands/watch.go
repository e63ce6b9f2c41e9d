package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todochat/internal/app"
	"todochat/internal/config"
	"todochat/internal/exitcode"
	"todochat/internal/task"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: it follows the task list and lets
// the persona react to tasks being added or removed elsewhere.
type WatchCmd struct{}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "React to task changes until interrupted" }
func (c *WatchCmd) Usage() string     { return "todochat watch" }
func (c *WatchCmd) NeedsApp() bool    { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	conv, err := a.Conversation()
	if err != nil {
		return Report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(errOut, "watching tasks (interrupt to stop)")
	}

	persona := a.Persona()
	err = a.Tasks.Watch(ctx, func(tasks []task.Task) {
		turn, err := conv.ObserveTasks(ctx, tasks)
		if err != nil {
			// A failed reaction does not end the watch.
			a.Log.Error("reaction failed", "err", err)
			fmt.Fprintf(errOut, "error: %v\n", err)
			return
		}
		printTurn(out, persona, turn)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return Report(errOut, err)
	}
	return exitcode.Success
}
