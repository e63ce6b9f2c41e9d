// Package commands implements the todochat subcommands: editing the task
// list, talking to the persona and managing the Google Tasks login.
package commands

import (
	"context"
	"flag"
	"io"

	"todochat/internal/app"
	"todochat/internal/config"
)

// Command is one todochat subcommand. The dispatcher parses the common
// flags and the command's own, loads config.yaml and, when NeedsApp is
// true, opens the store and conversation before calling Run.
type Command interface {
	Name() string
	Aliases() []string

	// Synopsis is the one-line description in the help table.
	Synopsis() string
	Usage() string

	// NeedsApp reports whether Run reads or writes tasks or chat messages.
	// Commands that only touch files in the config dir get a nil app.
	NeedsApp() bool

	RegisterFlags(fs *flag.FlagSet)

	// Run gets the positional args left after flag parsing and returns the
	// process exit code. Errors are reported on errOut through Report.
	Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int
}
