package completion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyReply is returned when the service answers without any choices.
var ErrEmptyReply = errors.New("completion service returned no reply")

// ErrNoAPIKey is returned by NewClient when no API key is configured.
var ErrNoAPIKey = errors.New("no completion API key configured")

// Client implements Completer against an OpenAI-compatible chat API.
type Client struct {
	client *openai.Client
	config Config
}

// NewClient creates a Client. Zero fields of cfg take their defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == nil {
		t := float32(DefaultTemperature)
		cfg.Temperature = &t
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete implements Completer.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: *c.config.Temperature,
	}
	// go-openai omits a zero temperature, which leaves the server default.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping sends a one-line prompt and returns the trimmed reply.
func Ping(ctx context.Context, c Completer) (string, error) {
	reply, err := c.Complete(ctx, []Message{
		{Role: RoleUser, Content: "Reply with the single word OK."},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
