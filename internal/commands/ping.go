package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todochat/internal/app"
	"todochat/internal/chat"
	"todochat/internal/completion"
	"todochat/internal/config"
	"todochat/internal/exitcode"
)

func init() {
	Register(&PingCmd{})
}

// PingCmd implements the ping command.
type PingCmd struct{}

func (c *PingCmd) Name() string      { return "ping" }
func (c *PingCmd) Aliases() []string { return nil }
func (c *PingCmd) Synopsis() string  { return "Check the completion service" }
func (c *PingCmd) Usage() string     { return "todochat ping" }
func (c *PingCmd) NeedsApp() bool    { return true }

func (c *PingCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PingCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	completer, err := a.Completer()
	if err != nil {
		return Report(errOut, err)
	}

	reply, err := completion.Ping(ctx, completer)
	if err != nil {
		return Report(errOut, fmt.Errorf("%w: %w", chat.ErrCompletion, err))
	}
	if reply == "" {
		reply = "(empty reply)"
	}
	fmt.Fprintf(out, "ok: %s\n", reply)
	return exitcode.Success
}
