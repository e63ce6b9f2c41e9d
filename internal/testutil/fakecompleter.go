package testutil

import (
	"context"
	"sync"

	"todochat/internal/completion"
)

// FakeCompleter is a scripted implementation of completion.Completer.
type FakeCompleter struct {
	mu      sync.Mutex
	replies []string
	prompts [][]completion.Message

	// Reply is returned once the scripted replies run out.
	Reply string

	// Err, if set, fails every call.
	Err error

	// Block, if set, is waited on before answering. Started, if set, is
	// closed when the first call arrives.
	Block   chan struct{}
	Started chan struct{}
	started sync.Once
}

// NewFakeCompleter returns a FakeCompleter answering with replies in order.
func NewFakeCompleter(replies ...string) *FakeCompleter {
	return &FakeCompleter{replies: replies}
}

// Complete implements completion.Completer.
func (f *FakeCompleter) Complete(ctx context.Context, messages []completion.Message) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, append([]completion.Message(nil), messages...))
	f.mu.Unlock()

	if f.Started != nil {
		f.started.Do(func() { close(f.Started) })
	}
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.Err != nil {
		return "", f.Err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return f.Reply, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// Calls returns how many prompts were received.
func (f *FakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// LastPrompt returns the most recent prompt, or nil.
func (f *FakeCompleter) LastPrompt() []completion.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return nil
	}
	return f.prompts[len(f.prompts)-1]
}
