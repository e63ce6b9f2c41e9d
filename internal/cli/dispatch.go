package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todochat/internal/app"
	"todochat/internal/commands"
	"todochat/internal/config"
	"todochat/internal/exitcode"
)

// AppFactory wires an App from config.
// Used to inject stores and the completion service during dispatch.
type AppFactory func(ctx context.Context, cfg *config.Config) (*app.App, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  AppFactory
}

// NewDispatcher creates a new dispatcher with the given registry and app
// factory. A nil factory uses app.New.
func NewDispatcher(registry *commands.Registry, factory AppFactory) *Dispatcher {
	if factory == nil {
		factory = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
			return app.New(ctx, cfg)
		}
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// With no arguments it runs list. Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	name, rest := "list", []string(nil)
	if len(args) > 0 {
		name, rest = args[0], args[1:]
	}

	// Flags require a command, so a leading flag is an unknown command.
	cmd, ok := d.registry.Find(name)
	if !ok || strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, rest, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // errors are reported below

	var common struct {
		configDir    string
		quiet, debug bool
	}
	fs.StringVar(&common.configDir, "config", "", "")
	fs.BoolVar(&common.quiet, "quiet", false, "")
	fs.BoolVar(&common.debug, "debug", false, "")
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", describeFlagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	var a *app.App
	if cmd.NeedsApp() {
		if code, ok := checkGoogleAuth(cfg, errOut); !ok {
			return code
		}
		a, err = d.factory(ctx, cfg)
		if err != nil {
			return commands.Report(errOut, err)
		}
		defer func() {
			if err := a.Close(context.Background()); err != nil {
				a.Log.Warn("shutdown", "err", err)
			}
		}()
	}

	return cmd.Run(ctx, cfg, a, positionalArgs, out, errOut)
}

// checkGoogleAuth reports missing credentials before the googletasks
// backend is opened.
func checkGoogleAuth(cfg *config.Config, errOut io.Writer) (int, bool) {
	if cfg.Settings.Backend != config.BackendGoogleTasks {
		return exitcode.Success, true
	}
	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: %s not found in %s\n", config.OAuthClientFile, cfg.Dir)
		return exitcode.AuthError, false
	}
	if !cfg.HasToken() {
		fmt.Fprintln(errOut, "error: not logged in (run: todochat login)")
		return exitcode.AuthError, false
	}
	return exitcode.Success, true
}

// describeFlagError rewrites flag package errors into the CLI's wording.
func describeFlagError(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "flag needs an argument:"):
		name := strings.TrimSpace(strings.TrimPrefix(msg, "flag needs an argument:"))
		return "flag needs an argument: " + name
	case strings.HasPrefix(msg, "flag provided but not defined:"):
		name := strings.TrimSpace(strings.TrimPrefix(msg, "flag provided but not defined:"))
		return "unknown flag: " + name
	default:
		return msg
	}
}
