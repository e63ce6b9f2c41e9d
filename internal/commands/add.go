package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todochat/internal/app"
	"todochat/internal/config"
	"todochat/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "todochat add <text...>" }
func (c *AddCmd) NeedsApp() bool    { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}

	if err := a.Tasks.Refresh(ctx); err != nil {
		return Report(errOut, err)
	}
	if _, err := a.Tasks.AddTask(ctx, text); err != nil {
		return Report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
