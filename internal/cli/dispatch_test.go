package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todochat/internal/app"
	"todochat/internal/backend/googletasks"
	"todochat/internal/cli"
	"todochat/internal/commands"
	"todochat/internal/config"
	"todochat/internal/exitcode"
	"todochat/internal/store"
	"todochat/internal/telemetry"
	"todochat/internal/testutil"
)

// testFactory wires apps over the given FakeStore and FakeCompleter.
func testFactory(fs *testutil.FakeStore, fc *testutil.FakeCompleter) cli.AppFactory {
	return func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(ctx, cfg,
			app.WithStore(fs),
			app.WithCompleter(fc),
			app.WithLogger(telemetry.Discard()),
		)
	}
}

func run(t *testing.T, factory cli.AppFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code = dispatcher.Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, nil, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown command: unknowncmd\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, nil, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown command: --quiet\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "list", "--bogus")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown flag: -bogus\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDispatcher_FlagNeedsValue(t *testing.T) {
	_, stderr, code := run(t, nil, "history", "--limit")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: flag needs an argument: -limit\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDispatcher_HelpNeedsNoApp(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		t.Error("help should not build an app")
		return nil, errors.New("unexpected")
	}
	stdout, stderr, code := run(t, factory, "help", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_NoArgsListsTasks(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	fs := testutil.NewFakeStore()
	fs.Seed(store.UserCollection(config.DefaultUser, store.Todos), "a", store.Fields{"text": "Buy milk", "order": 0})

	stdout, stderr, code := run(t, testFactory(fs, testutil.NewFakeCompleter()))
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "   1  [ ] Buy milk\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestDispatcher_ChatEndToEnd(t *testing.T) {
	fs := testutil.NewFakeStore()
	fc := testutil.NewFakeCompleter("Ugh, FINE. TASK: Learn TypeScript")
	dir := t.TempDir()

	stdout, stderr, code := run(t, testFactory(fs, fc), "chat", "--config", dir, "I", "need", "to", "learn", "TypeScript")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "Makima: Ugh, FINE.\n+ Learn TypeScript\n" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, _ = run(t, testFactory(fs, fc), "list", "--config", dir)
	if stdout != "   1  [ ] Learn TypeScript\n" {
		t.Errorf("list stdout = %q", stdout)
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	fs := testutil.NewFakeStore()
	stdout, stderr, code := run(t, testFactory(fs, testutil.NewFakeCompleter()), "add", "--quiet", "--config", t.TempDir(), "Sweep")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected no stdout with --quiet, got %q", stdout)
	}
}

func TestDispatcher_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("backend: floppy\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, nil, "list", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "unknown backend") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDispatcher_GoogleBackendRequiresLogin(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("backend: googletasks\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte(`{"installed":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, nil, "list", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: not logged in (run: todochat login)\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDispatcher_FactoryAuthError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return nil, googletasks.ErrAuth
	}

	_, stderr, code := run(t, factory, "list", "--config", t.TempDir())
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error:") {
		t.Errorf("stderr = %q", stderr)
	}
}
