// Package main is the entry point for the todochat CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"todochat/internal/app"
	"todochat/internal/cli"
	"todochat/internal/commands"
	"todochat/internal/config"
)

func main() {
	// Cancel on interrupt so watch and in-flight requests stop cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	factory := func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(ctx, cfg, app.WithVersion(commands.Version))
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
