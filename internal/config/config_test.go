package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"todochat/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GROQ_API_KEY", "TODOCHAT_API_KEY", "TODOCHAT_MODEL", "TODOCHAT_BASE_URL", "TODOCHAT_BACKEND", "TODOCHAT_USER"} {
		t.Setenv(k, "")
	}
}

func writeSettings(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Settings
	if s.User != config.DefaultUser || s.Backend != config.BackendSQLite {
		t.Errorf("user/backend = %q/%q", s.User, s.Backend)
	}
	if s.HistoryLimit != config.DefaultHistoryLimit {
		t.Errorf("history limit = %d", s.HistoryLimit)
	}
	if s.GoogleTasks.List != config.DefaultGoogleList {
		t.Errorf("list = %q", s.GoogleTasks.List)
	}
	if cfg.DBPath() != filepath.Join(dir, config.DatabaseFile) {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeSettings(t, dir, `
user: denji
backend: googletasks
database: data/chat.db
googletasks:
  list: Chores
completion:
  model: llama-3.1-8b-instant
  api_key: from-file
  temperature: 0.5
  timeout: 45s
persona:
  name: Power
history_limit: 4
log:
  level: debug
  format: json
trace:
  enabled: true
`)

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Settings
	if s.User != "denji" || s.Backend != config.BackendGoogleTasks || s.GoogleTasks.List != "Chores" {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.Completion.Model != "llama-3.1-8b-instant" || s.Completion.APIKey != "from-file" {
		t.Errorf("completion = %+v", s.Completion)
	}
	if s.Completion.Temperature == nil || *s.Completion.Temperature != 0.5 || s.Completion.Timeout != 45*time.Second {
		t.Errorf("temperature/timeout = %v/%v", s.Completion.Temperature, s.Completion.Timeout)
	}
	if s.Persona.Name != "Power" || s.HistoryLimit != 4 {
		t.Errorf("persona/history = %+v/%d", s.Persona, s.HistoryLimit)
	}
	if s.Log.Level != "debug" || s.Log.Format != "json" || !s.Trace.Enabled {
		t.Errorf("log/trace = %+v/%+v", s.Log, s.Trace)
	}
	if cfg.DBPath() != filepath.Join(dir, "data", "chat.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeSettings(t, dir, "completion:\n  api_key: from-file\n  model: file-model\n")

	t.Setenv("GROQ_API_KEY", "groq-key")
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.Completion.APIKey != "from-file" {
		t.Errorf("GROQ_API_KEY must not override the file, got %q", cfg.Settings.Completion.APIKey)
	}

	t.Setenv("TODOCHAT_API_KEY", "env-key")
	t.Setenv("TODOCHAT_MODEL", "env-model")
	t.Setenv("TODOCHAT_USER", "aki")
	t.Setenv("TODOCHAT_BACKEND", "GoogleTasks")
	cfg, err = config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Settings
	if s.Completion.APIKey != "env-key" || s.Completion.Model != "env-model" {
		t.Errorf("completion = %+v", s.Completion)
	}
	if s.User != "aki" || s.Backend != config.BackendGoogleTasks {
		t.Errorf("user/backend = %q/%q", s.User, s.Backend)
	}
}

func TestLoad_GroqKeyFillsMissingKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "groq-key")
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.Completion.APIKey != "groq-key" {
		t.Errorf("api key = %q", cfg.Settings.Completion.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"backend":     "backend: firestore\n",
		"user":        "user: a/b\n",
		"temperature": "completion:\n  temperature: 3\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeSettings(t, dir, body)
			if _, err := config.Load(dir); !errors.Is(err, config.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeSettings(t, dir, "user: [unclosed\n")
	if _, err := config.Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestPaths(t *testing.T) {
	cfg, err := config.New("/tmp/todochat-test")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OAuthClientPath() != filepath.Join("/tmp/todochat-test", config.OAuthClientFile) {
		t.Errorf("OAuthClientPath = %q", cfg.OAuthClientPath())
	}
	if cfg.TokenPath() != filepath.Join("/tmp/todochat-test", config.TokenFile) {
		t.Errorf("TokenPath = %q", cfg.TokenPath())
	}
	if cfg.TracePath() != filepath.Join("/tmp/todochat-test", "logs", "trace.jsonl") {
		t.Errorf("TracePath = %q", cfg.TracePath())
	}
	cfg.Settings.Database = "/var/lib/todochat.db"
	if cfg.DBPath() != "/var/lib/todochat.db" {
		t.Errorf("absolute DBPath = %q", cfg.DBPath())
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := config.DefaultConfigDir(); got != filepath.Join("/xdg", config.AppName) {
		t.Errorf("DefaultConfigDir = %q", got)
	}
}

func TestLoad_ZeroTemperatureIsKept(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeSettings(t, dir, "completion:\n  temperature: 0\n")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Settings.Completion.Temperature; got == nil || *got != 0 {
		t.Errorf("temperature = %v, want explicit 0", got)
	}

	cfg, err = config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Settings.Completion.Temperature; got != nil {
		t.Errorf("temperature = %v, want unset", *got)
	}
}
