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
)

func init() {
	Register(&HistoryCmd{})
}

// HistoryCmd implements the history command.
type HistoryCmd struct {
	limit int
}

// SetLimit sets the message limit (for testing).
func (c *HistoryCmd) SetLimit(limit int) {
	c.limit = limit
}

func (c *HistoryCmd) Name() string      { return "history" }
func (c *HistoryCmd) Aliases() []string { return nil }
func (c *HistoryCmd) Synopsis() string  { return "Print the conversation" }
func (c *HistoryCmd) Usage() string     { return "todochat history [--limit <n>]" }
func (c *HistoryCmd) NeedsApp() bool    { return true }

func (c *HistoryCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.limit, "limit", 0, "")
}

func (c *HistoryCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if c.limit < 0 {
		fmt.Fprintf(errOut, "error: invalid limit: %d\n", c.limit)
		return exitcode.UserError
	}

	msgs, err := a.History.List(ctx)
	if err != nil {
		return Report(errOut, err)
	}
	if c.limit > 0 && len(msgs) > c.limit {
		msgs = msgs[len(msgs)-c.limit:]
	}

	if len(msgs) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no messages")
		}
		return exitcode.Success
	}
	for _, m := range msgs {
		output.FormatMessage(out, m, a.Persona())
	}
	return exitcode.Success
}
