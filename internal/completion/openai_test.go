package completion_test

import (
	"context"
	"docsummary/internal/completion"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [
    {
      "index": 0,
      "finish_reason": "stop",
      "message": {"role": "assistant", "content": "  A short summary.  "}
    }
  ]
}`

func newTestServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		if req.Model != "test-model" || len(req.Messages) != 1 || req.Messages[0].Content != "Summarize this" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, chatCompletionBody, &calls)

	client, err := completion.NewOpenAIClient(completion.OpenAIClientConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: srv.URL + "/v1/",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := client.Complete(context.Background(), "Summarize this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "A short summary." {
		t.Fatalf("unexpected completion: %q", got)
	}
}

func TestOpenAIClientDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, &calls)

	client, err := completion.NewOpenAIClient(completion.OpenAIClientConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: srv.URL + "/v1/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retrying := completion.WithRetry(client, completion.RetryPolicy{MaxAttempts: 3}, "openai", slog.Default())

	if _, err = retrying.Complete(context.Background(), "Summarize this"); err == nil {
		t.Fatalf("expected error")
	}

	if calls.Load() != 1 {
		t.Fatalf("expected a single request, got %d", calls.Load())
	}
}

func TestOpenAIClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusInternalServerError, `{"error":{"message":"oops"}}`, &calls)

	client, err := completion.NewOpenAIClient(completion.OpenAIClientConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: srv.URL + "/v1/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retrying := completion.WithRetry(client, completion.RetryPolicy{MaxAttempts: 3}, "openai", slog.Default())

	if _, err = retrying.Complete(context.Background(), "Summarize this"); err == nil {
		t.Fatalf("expected error")
	}

	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestNewOpenAIClientValidatesConfig(t *testing.T) {
	if _, err := completion.NewOpenAIClient(completion.OpenAIClientConfig{Model: "m"}); err == nil {
		t.Fatalf("expected error for empty API key")
	}

	if _, err := completion.NewOpenAIClient(completion.OpenAIClientConfig{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for empty model")
	}
}
