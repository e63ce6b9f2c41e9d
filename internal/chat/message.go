// Package chat runs conversation turns with the persona and keeps the
// conversation history.
package chat

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"todochat/internal/store"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// legacyAssistant is how older clients stored assistant messages.
const legacyAssistant = "ai"

// Document field names.
const (
	FieldText      = "text"
	FieldRole      = "role"
	FieldCreatedAt = "createdAt"
)

// Message is one persisted chat message. Messages are append-only.
type Message struct {
	ID        string
	Text      string
	Role      Role
	CreatedAt time.Time
}

// ParseRole maps a stored role name to a Role. Unknown names are system.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleUser):
		return RoleUser
	case string(RoleAssistant), legacyAssistant:
		return RoleAssistant
	default:
		return RoleSystem
	}
}

// FromDocument decodes a stored message.
func FromDocument(doc store.Document) Message {
	m := Message{
		ID:   doc.ID,
		Text: doc.Fields.String(FieldText),
		Role: ParseRole(doc.Fields.String(FieldRole)),
	}
	m.CreatedAt, _ = doc.Fields.Time(FieldCreatedAt)
	return m
}

// Fields encodes m for storage.
func (m Message) Fields() store.Fields {
	return store.Fields{
		FieldText:      m.Text,
		FieldRole:      string(m.Role),
		FieldCreatedAt: store.FormatTime(m.CreatedAt),
	}
}

// SortMessages orders messages by CreatedAt, keeping store order for ties.
func SortMessages(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// History reads and writes the chat message collection.
type History struct {
	store      store.Store
	collection string
	now        func() time.Time
	log        *log.Logger
}

// NewHistory returns a History over collection.
func NewHistory(s store.Store, collection string, logger *log.Logger) *History {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &History{store: s, collection: collection, now: time.Now, log: logger}
}

// SetClock overrides the clock used for CreatedAt.
func (h *History) SetClock(now func() time.Time) {
	h.now = now
}

// Collection returns the collection path.
func (h *History) Collection() string {
	return h.collection
}

// Append persists a new message and returns it with its id.
func (h *History) Append(ctx context.Context, role Role, text string) (Message, error) {
	m := Message{Text: text, Role: role, CreatedAt: h.now()}
	id, err := h.store.Add(ctx, h.collection, m.Fields())
	if err != nil {
		return Message{}, fmt.Errorf("save %s message: %w", role, err)
	}
	m.ID = id
	return m, nil
}

// List returns every message, oldest first.
func (h *History) List(ctx context.Context) ([]Message, error) {
	snap, err := h.store.List(ctx, h.collection)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs := make([]Message, 0, len(snap))
	for _, doc := range snap {
		msgs = append(msgs, FromDocument(doc))
	}
	SortMessages(msgs)
	return msgs, nil
}

// Clear deletes every message and returns how many were deleted. Deletes
// run oldest first and stop at the first failure.
func (h *History) Clear(ctx context.Context) (int, error) {
	msgs, err := h.List(ctx)
	if err != nil {
		return 0, err
	}

	if b, ok := store.BatcherFor(h.store, h.collection); ok {
		ops := make([]store.Op, len(msgs))
		for i, m := range msgs {
			ops[i] = store.Op{Kind: store.OpDelete, ID: m.ID}
		}
		if err := b.Batch(ctx, h.collection, ops); err != nil {
			return 0, fmt.Errorf("clear messages: %w", err)
		}
		return len(msgs), nil
	}

	for i, m := range msgs {
		if err := h.store.Delete(ctx, h.collection, m.ID); err != nil {
			return i, fmt.Errorf("clear messages: %w", err)
		}
	}
	return len(msgs), nil
}

// Recent returns at most limit user and assistant messages from the end of
// msgs, skipping the message with id exclude.
func Recent(msgs []Message, limit int, exclude string) []Message {
	var out []Message
	for _, m := range msgs {
		if m.ID == exclude && exclude != "" {
			continue
		}
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		out = append(out, m)
	}
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
