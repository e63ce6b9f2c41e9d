// Package app assembles the store, task controller, chat history and
// conversation from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/trace"

	"todochat/internal/backend/googletasks"
	"todochat/internal/chat"
	"todochat/internal/completion"
	"todochat/internal/config"
	"todochat/internal/store"
	"todochat/internal/store/sqlite"
	"todochat/internal/task"
	"todochat/internal/telemetry"
)

// App holds the wired components for one command invocation.
type App struct {
	Config  *config.Config
	Log     *log.Logger
	Tracer  trace.Tracer
	Store   store.Store
	Tasks   *task.Controller
	History *chat.History

	completer    completion.Completer
	completerErr error
	conversation *chat.Conversation

	closers []func(context.Context) error
}

// Option configures New.
type Option func(*options)

type options struct {
	store     store.Store
	completer completion.Completer
	logger    *log.Logger
	logOut    io.Writer
	version   string
}

// WithStore uses s instead of opening the configured backend.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithCompleter uses c instead of the configured completion service.
func WithCompleter(c completion.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithLogger uses l instead of building a logger from the settings.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogOutput sets where the configured logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOut = w }
}

// WithVersion is reported as the service version on exported spans.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New wires an App for cfg. The completion client is built eagerly but a
// missing API key only surfaces when a command asks for it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{logOut: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	s := cfg.Settings

	a := &App{Config: cfg, Log: o.logger}
	if a.Log == nil {
		a.Log = telemetry.NewLogger(o.logOut, telemetry.LogOptions{
			Level:  s.Log.Level,
			Format: s.Log.Format,
			Debug:  cfg.Debug,
		})
	}

	tracing, err := telemetry.InitTracing(ctx, telemetry.TraceOptions{
		Enabled: s.Trace.Enabled,
		Path:    cfg.TracePath(),
		Version: o.version,
	})
	if err != nil {
		return nil, err
	}
	a.Tracer = tracing.Tracer
	a.closers = append(a.closers, tracing.Shutdown)

	a.Store = o.store
	if a.Store == nil {
		if a.Store, err = a.openStore(ctx); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	user := s.User
	a.Tasks = task.NewController(a.Store, store.UserCollection(user, store.Todos),
		task.WithLogger(a.Log.WithPrefix("tasks")))
	a.History = chat.NewHistory(a.Store, store.UserCollection(user, store.ChatMessages),
		a.Log.WithPrefix("chat"))

	a.completer = o.completer
	if a.completer == nil {
		client, err := completion.NewClient(completion.Config{
			BaseURL:     s.Completion.BaseURL,
			APIKey:      s.Completion.APIKey,
			Model:       s.Completion.Model,
			Temperature: s.Completion.Temperature,
			Timeout:     s.Completion.Timeout,
		})
		if err != nil {
			a.completerErr = err
		} else {
			a.completer = client
			a.Log.Debug("completion client ready", "model", client.Model())
		}
	}
	return a, nil
}

// openStore opens sqlite, and routes the todos collection to Google Tasks
// when that backend is selected.
func (a *App) openStore(ctx context.Context) (store.Store, error) {
	cfg := a.Config
	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	db, err := sqlite.Open(cfg.DBPath(), sqlite.WithLogger(a.Log.WithPrefix("sqlite")))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	if cfg.Settings.Backend != config.BackendGoogleTasks {
		return db, nil
	}

	gt, err := googletasks.New(ctx, cfg, googletasks.WithLogger(a.Log.WithPrefix("googletasks")))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return gt.Close() })

	mux := store.NewMux(db)
	mux.Route(store.Todos, gt)
	return mux, nil
}

// Completer returns the completion service, or the error that prevented
// building it.
func (a *App) Completer() (completion.Completer, error) {
	if a.completer == nil {
		if a.completerErr != nil {
			return nil, a.completerErr
		}
		return nil, completion.ErrNoAPIKey
	}
	return a.completer, nil
}

// Conversation returns the conversation, creating it on first use.
func (a *App) Conversation() (*chat.Conversation, error) {
	if a.conversation != nil {
		return a.conversation, nil
	}
	c, err := a.Completer()
	if err != nil {
		return nil, err
	}

	persona := chat.DefaultPersona
	if p := a.Config.Settings.Persona; p.Name != "" || p.Prompt != "" {
		if p.Name != "" {
			persona.Name = p.Name
		}
		if p.Prompt != "" {
			persona.Prompt = p.Prompt
		}
	}

	a.conversation = chat.NewConversation(a.Tasks, a.History, c,
		chat.WithPersona(persona),
		chat.WithHistoryLimit(a.Config.Settings.HistoryLimit),
		chat.WithLogger(a.Log.WithPrefix("conversation")),
		chat.WithTracer(a.Tracer),
	)
	return a.conversation, nil
}

// Persona returns the configured persona name.
func (a *App) Persona() string {
	if n := a.Config.Settings.Persona.Name; n != "" {
		return n
	}
	return chat.DefaultPersona.Name
}

// Close releases stores and flushes spans, in reverse order of setup.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
