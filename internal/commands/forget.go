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
	Register(&ForgetCmd{})
}

// ForgetCmd implements the forget command. Tasks are kept.
type ForgetCmd struct{}

func (c *ForgetCmd) Name() string      { return "forget" }
func (c *ForgetCmd) Aliases() []string { return nil }
func (c *ForgetCmd) Synopsis() string  { return "Delete the conversation" }
func (c *ForgetCmd) Usage() string     { return "todochat forget" }
func (c *ForgetCmd) NeedsApp() bool    { return true }

func (c *ForgetCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ForgetCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	n, err := a.History.Clear(ctx)
	if err != nil {
		return Report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "deleted %d messages\n", n)
	}
	return exitcode.Success
}
