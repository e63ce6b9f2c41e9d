// Package config handles the XDG configuration directory, its files and
// the settings in config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "todochat"

	// SettingsFile is the settings filename.
	SettingsFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DatabaseFile is the default sqlite database filename.
	DatabaseFile = "todochat.db"
)

// Backends for the task collection.
const (
	BackendSQLite      = "sqlite"
	BackendGoogleTasks = "googletasks"
)

// ErrInvalid is returned for settings that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings is config.yaml after environment overrides and defaults.
	Settings Settings
}

// Settings mirrors config.yaml.
type Settings struct {
	User         string            `yaml:"user"`
	Backend      string            `yaml:"backend"`
	Database     string            `yaml:"database"`
	GoogleTasks  GoogleTasks       `yaml:"googletasks"`
	Completion   CompletionSection `yaml:"completion"`
	Persona      PersonaSection    `yaml:"persona"`
	HistoryLimit int               `yaml:"history_limit"`
	Log          LogSection        `yaml:"log"`
	Trace        TraceSection      `yaml:"trace"`
}

// GoogleTasks configures the Google Tasks backend.
type GoogleTasks struct {
	// List is the title of the task list to use; created when missing.
	List string `yaml:"list"`
}

// CompletionSection configures the completion service.
type CompletionSection struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature *float32      `yaml:"temperature"` // nil keeps the client default
	Timeout     time.Duration `yaml:"timeout"`
}

// PersonaSection overrides the persona.
type PersonaSection struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TraceSection configures span export.
type TraceSection struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults.
const (
	DefaultUser         = "local"
	DefaultGoogleList   = "todochat"
	DefaultHistoryLimit = 10
)

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todochat or $HOME/.config/todochat.
// Settings hold defaults until Load is called.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	c := &Config{Dir: dir}
	c.Settings.normalize()
	return c, nil
}

// Load creates a Config and reads config.yaml from its directory. A missing
// file is not an error.
func Load(configDir string) (*Config, error) {
	c, err := New(configDir)
	if err != nil {
		return nil, err
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads config.yaml, applies environment overrides and fills defaults.
func (c *Config) Load() error {
	var s Settings
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", SettingsFile, err)
	case len(data) > 0:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parse %s: %w", SettingsFile, err)
		}
	}

	s.applyEnv()
	s.normalize()
	if err := s.validate(); err != nil {
		return err
	}
	c.Settings = s
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("GROQ_API_KEY"); v != "" && s.Completion.APIKey == "" {
		s.Completion.APIKey = v
	}
	// TODOCHAT_* always wins over the file.
	if v := os.Getenv("TODOCHAT_API_KEY"); v != "" {
		s.Completion.APIKey = v
	}
	if v := os.Getenv("TODOCHAT_MODEL"); v != "" {
		s.Completion.Model = v
	}
	if v := os.Getenv("TODOCHAT_BASE_URL"); v != "" {
		s.Completion.BaseURL = v
	}
	if v := os.Getenv("TODOCHAT_BACKEND"); v != "" {
		s.Backend = v
	}
	if v := os.Getenv("TODOCHAT_USER"); v != "" {
		s.User = v
	}
}

func (s *Settings) normalize() {
	s.User = strings.TrimSpace(s.User)
	if s.User == "" {
		s.User = DefaultUser
	}
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendSQLite
	}
	if strings.TrimSpace(s.GoogleTasks.List) == "" {
		s.GoogleTasks.List = DefaultGoogleList
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = DefaultHistoryLimit
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "text"
	}
}

func (s *Settings) validate() error {
	switch s.Backend {
	case BackendSQLite, BackendGoogleTasks:
	default:
		return fmt.Errorf("%w: unknown backend %q (want %s or %s)", ErrInvalid, s.Backend, BackendSQLite, BackendGoogleTasks)
	}
	if strings.ContainsAny(s.User, "/\\") {
		return fmt.Errorf("%w: user %q must not contain path separators", ErrInvalid, s.User)
	}
	if t := s.Completion.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: temperature %v out of range [0,2]", ErrInvalid, *t)
	}
	return nil
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// DBPath returns the sqlite database path. A relative database setting is
// resolved against the config directory.
func (c *Config) DBPath() string {
	db := c.Settings.Database
	if db == "" {
		return filepath.Join(c.Dir, DatabaseFile)
	}
	if !filepath.IsAbs(db) {
		return filepath.Join(c.Dir, db)
	}
	return db
}

// LogDir returns the directory for trace output.
func (c *Config) LogDir() string {
	return filepath.Join(c.Dir, "logs")
}

// TracePath returns the span export file.
func (c *Config) TracePath() string {
	return filepath.Join(c.LogDir(), "trace.jsonl")
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
