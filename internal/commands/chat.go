package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todochat/internal/app"
	"todochat/internal/chat"
	"todochat/internal/config"
	"todochat/internal/exitcode"
	"todochat/internal/output"
)

func init() {
	Register(&ChatCmd{})
}

// ChatCmd implements the chat command.
type ChatCmd struct{}

func (c *ChatCmd) Name() string      { return "chat" }
func (c *ChatCmd) Aliases() []string { return []string{"say"} }
func (c *ChatCmd) Synopsis() string  { return "Send a message to the persona" }
func (c *ChatCmd) Usage() string     { return "todochat chat <message...>" }
func (c *ChatCmd) NeedsApp() bool    { return true }

func (c *ChatCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ChatCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(errOut, "error: message required")
		return exitcode.UserError
	}

	conv, err := a.Conversation()
	if err != nil {
		return Report(errOut, err)
	}
	if err := a.Tasks.Refresh(ctx); err != nil {
		return Report(errOut, err)
	}

	turn, err := conv.Send(ctx, text)
	if err != nil {
		return Report(errOut, err)
	}
	printTurn(out, a.Persona(), turn)
	return exitcode.Success
}

// printTurn prints the reply of a completed turn and the tasks it added.
func printTurn(out io.Writer, persona string, turn chat.Turn) {
	if turn.Skipped {
		return
	}
	if turn.Reply != "" {
		output.FormatReply(out, persona, turn.Reply)
	}
	for _, t := range turn.Added {
		output.FormatAdded(out, t)
	}
}
