package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"todochat/internal/completion"
	"todochat/internal/interpret"
	"todochat/internal/notify"
	"todochat/internal/task"
	"todochat/internal/telemetry"
)

// ErrCompletion wraps failures of the completion service.
var ErrCompletion = errors.New("completion failed")

const (
	// DefaultHistoryLimit bounds the history sent with each prompt.
	DefaultHistoryLimit = 10

	// minTaskRunes is the shortest description accepted from a reply.
	minTaskRunes = 3

	saveFailure = "System Error: Failed to save the conversation. "
)

// Turn is the outcome of one round trip.
type Turn struct {
	// Skipped is set when nothing was sent: blank input, no actionable
	// change, or another turn in flight.
	Skipped   bool
	Synthetic bool
	Event     notify.Event
	Prompt    string
	Reply     string
	Added     []task.Task
	Rejected  []string
}

// Conversation orchestrates turns between the user, the persona and the
// task list. At most one turn runs at a time; a turn requested while one is
// in flight is dropped.
type Conversation struct {
	tasks     *task.Controller
	history   *History
	completer completion.Completer

	persona      Persona
	historyLimit int
	log          *log.Logger
	tracer       trace.Tracer

	busy atomic.Bool

	// notifier and selfAdded are guarded by notifyMu.
	notifyMu  sync.Mutex
	notifier  *notify.Notifier
	selfAdded map[string]bool
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithPersona sets the persona.
func WithPersona(p Persona) Option {
	return func(c *Conversation) { c.persona = p }
}

// WithHistoryLimit sets how many past messages go into each prompt.
func WithHistoryLimit(n int) Option {
	return func(c *Conversation) {
		if n >= 0 {
			c.historyLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Conversation) { c.log = l }
}

// WithTracer sets the tracer used for turn spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Conversation) { c.tracer = t }
}

// NewConversation creates a Conversation.
func NewConversation(tasks *task.Controller, history *History, completer completion.Completer, opts ...Option) *Conversation {
	c := &Conversation{
		tasks:        tasks,
		history:      history,
		completer:    completer,
		persona:      DefaultPersona,
		historyLimit: DefaultHistoryLimit,
		log:          log.New(io.Discard),
		tracer:       telemetry.NoopTracer(),
		notifier:     notify.New(),
		selfAdded:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether a turn is in flight.
func (c *Conversation) Busy() bool {
	return c.busy.Load()
}

// Send runs a user turn.
func (c *Conversation) Send(ctx context.Context, text string) (Turn, error) {
	return c.run(ctx, text, false, notify.Event{})
}

// ObserveTasks feeds a task snapshot to the change notifier and, when the
// transition is actionable, runs a synthetic turn about it. Tasks this
// conversation added itself are not reported back to the persona.
func (c *Conversation) ObserveTasks(ctx context.Context, tasks []task.Task) (Turn, error) {
	c.notifyMu.Lock()
	ev, ok := c.notifier.ObserveExcluding(tasks, func(id string) bool { return c.selfAdded[id] })
	// Once in a snapshot, a task is no longer new to the notifier.
	for _, t := range tasks {
		delete(c.selfAdded, t.ID)
	}
	c.notifyMu.Unlock()

	if !ok {
		return Turn{Skipped: true, Synthetic: true}, nil
	}
	c.log.Debug("task list changed", "event", ev.Kind, "task", ev.Task.Text, "count", ev.Count)
	return c.run(ctx, ev.Prompt(), true, ev)
}

func (c *Conversation) run(ctx context.Context, text string, synthetic bool, ev notify.Event) (Turn, error) {
	text = strings.TrimSpace(text)
	turn := Turn{Synthetic: synthetic, Event: ev, Prompt: text}
	if text == "" {
		turn.Skipped = true
		return turn, nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.log.Debug("turn dropped, another turn is in flight", "synthetic", synthetic)
		turn.Skipped = true
		return turn, nil
	}
	defer c.busy.Store(false)

	tasks := c.tasks.Tasks()
	pending, done := task.Counts(tasks)
	ctx, span := telemetry.StartSpan(ctx, c.tracer, "chat.turn",
		telemetry.AttrSynthetic.Bool(synthetic),
		telemetry.AttrTasksPending.Int(pending),
		telemetry.AttrTasksDone.Int(done),
	)
	defer span.End()

	fail := func(err error) (Turn, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return turn, err
	}

	var userID string
	if !synthetic {
		msg, err := c.history.Append(ctx, RoleUser, text)
		if err != nil {
			c.recordFailure(ctx, saveFailure, err)
			return fail(err)
		}
		userID = msg.ID
	}

	past, err := c.history.List(ctx)
	if err != nil {
		c.recordFailure(ctx, "System Error: Failed to load the conversation. ", err)
		return fail(err)
	}
	prompt := BuildPrompt(c.persona, Recent(past, c.historyLimit, userID), tasks, text)

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		c.recordFailure(ctx, "System Error: Failed to get AI response. ", err)
		return fail(fmt.Errorf("%w: %w", ErrCompletion, err))
	}

	res := interpret.Interpret(reply)
	for _, r := range res.Rejected {
		c.log.Debug("directive rejected", "text", r.Text, "syntax", r.Syntax, "reason", r.Reason)
		turn.Rejected = append(turn.Rejected, r.Text)
	}
	added, rejected := c.apply(ctx, res.Candidates)
	turn.Added = added
	turn.Rejected = append(turn.Rejected, rejected...)
	span.SetAttributes(
		telemetry.AttrCandidates.Int(len(res.Candidates)),
		telemetry.AttrAdded.Int(len(added)),
	)

	if _, err := c.history.Append(ctx, RoleAssistant, res.DisplayText); err != nil {
		c.recordFailure(ctx, saveFailure, err)
		return fail(err)
	}
	turn.Reply = res.DisplayText
	return turn, nil
}

func (c *Conversation) complete(ctx context.Context, prompt []completion.Message) (string, error) {
	ctx, span := telemetry.StartClientSpan(ctx, c.tracer, "completion.complete",
		telemetry.AttrMessages.Int(len(prompt)),
	)
	defer span.End()

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

// apply adds candidates that are long enough and not already on the list,
// including tasks added earlier in the same turn. Failures are logged and
// skipped.
func (c *Conversation) apply(ctx context.Context, candidates []string) (added []task.Task, rejected []string) {
	live := c.tasks.Tasks()
	for _, cand := range candidates {
		cand = strings.TrimSpace(cand)
		if utf8.RuneCountInString(cand) < minTaskRunes {
			c.log.Debug("candidate rejected", "text", cand, "reason", "too short")
			rejected = append(rejected, cand)
			continue
		}
		if existing, ok := task.FindByText(live, cand); ok {
			c.log.Debug("candidate rejected", "text", cand, "reason", "duplicate", "id", existing.ID)
			rejected = append(rejected, cand)
			continue
		}

		t, err := c.tasks.AddTask(ctx, cand)
		if err != nil {
			c.log.Warn("could not add task from reply", "text", cand, "err", err)
			continue
		}
		c.notifyMu.Lock()
		c.selfAdded[t.ID] = true
		c.notifyMu.Unlock()

		live = append(live, t)
		added = append(added, t)
		c.log.Info("task added from reply", "text", t.Text)
	}
	return added, rejected
}

// recordFailure persists a system message describing err. A failure to do
// so is only logged.
func (c *Conversation) recordFailure(ctx context.Context, prefix string, err error) {
	if _, serr := c.history.Append(ctx, RoleSystem, prefix+err.Error()); serr != nil {
		c.log.Error("could not record failure", "err", serr, "cause", err)
	}
}

// Clear deletes the conversation history.
func (c *Conversation) Clear(ctx context.Context) (int, error) {
	return c.history.Clear(ctx)
}
