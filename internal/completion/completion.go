// Package completion talks to the text completion service.
package completion

import (
	"context"
	"time"
)

// Message roles understood by the completion service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a completion prompt.
type Message struct {
	Role    string
	Content string
}

// Completer turns an ordered prompt into reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Config holds the settings for the OpenAI-compatible client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float32 // nil means DefaultTemperature
	Timeout     time.Duration
}

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.8
	DefaultTimeout     = 30 * time.Second
)
