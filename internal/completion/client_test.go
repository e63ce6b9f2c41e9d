package completion_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todochat/internal/completion"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string) *completion.Client {
	t.Helper()
	c, err := completion.NewClient(completion.Config{
		BaseURL: url,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_Complete(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Temperature != completion.DefaultTemperature {
			t.Errorf("temperature = %v", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hello" {
			t.Errorf("messages = %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Ugh, FINE."},"finish_reason":"stop"}]}`))
	})

	c := newClient(t, srv.URL)
	reply, err := c.Complete(context.Background(), []completion.Message{
		{Role: completion.RoleSystem, Content: "persona"},
		{Role: completion.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Ugh, FINE." {
		t.Errorf("reply = %q", reply)
	}
}

func TestClient_ZeroTemperature(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		if req.Temperature == 0 || req.Temperature > 1e-6 {
			t.Errorf("temperature = %v, want near zero", req.Temperature)
		}
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	})

	zero := float32(0)
	c, err := completion.NewClient(completion.Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Temperature: &zero,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Complete(context.Background(), []completion.Message{{Role: completion.RoleUser, Content: "x"}}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestClient_EmptyChoices(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	})

	_, err := newClient(t, srv.URL).Complete(context.Background(), []completion.Message{{Role: completion.RoleUser, Content: "x"}})
	if !errors.Is(err, completion.ErrEmptyReply) {
		t.Errorf("expected ErrEmptyReply, got %v", err)
	}
}

func TestClient_ServiceError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	_, err := newClient(t, srv.URL).Complete(context.Background(), []completion.Message{{Role: completion.RoleUser, Content: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := completion.NewClient(completion.Config{}); !errors.Is(err, completion.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" OK \n"},"finish_reason":"stop"}]}`))
	})

	got, err := completion.Ping(context.Background(), newClient(t, srv.URL))
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got != "OK" {
		t.Errorf("Ping = %q", got)
	}
}
