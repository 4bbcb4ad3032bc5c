package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func successBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	})
	return body
}

// newTestClient points a client at the given server and records backoff
// delays instead of sleeping.
func newTestClient(serverURL string, maxAttempts int, delays *[]time.Duration) *Client {
	c := NewClient("test-key",
		WithBaseURL(serverURL),
		WithRetryConfig(RetryConfig{
			MaxAttempts:       maxAttempts,
			BackoffBase:       3 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        60 * time.Second,
		}),
	)
	c.sleep = func(d time.Duration) {
		*delays = append(*delays, d)
	}
	return c
}

func TestComplete_RetriesThenSucceeds(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(successBody("hello"))
	}))
	defer server.Close()

	var delays []time.Duration
	client := newTestClient(server.URL, 10, &delays)

	resp, err := client.Complete(context.Background(), "prompt", 0, "")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	wantDelays := []time.Duration{3 * time.Second, 6 * time.Second}
	if len(delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", delays, wantDelays)
	}
	for i := range wantDelays {
		if delays[i] != wantDelays[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], wantDelays[i])
		}
	}
}

func TestComplete_BadRequestIsNotRetried(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	var delays []time.Duration
	client := newTestClient(server.URL, 10, &delays)

	_, err := client.Complete(context.Background(), "prompt", 0, "")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(delays) != 0 {
		t.Errorf("expected no backoff sleeps, got %v", delays)
	}
}

func TestComplete_ExhaustsAttempts(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var delays []time.Duration
	client := newTestClient(server.URL, 3, &delays)

	_, err := client.Complete(context.Background(), "prompt", 0, "")
	if err == nil {
		t.Fatal("expected terminal error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	// No sleep after the final attempt.
	if len(delays) != 2 {
		t.Errorf("sleeps = %d, want 2", len(delays))
	}
}

func TestCompleteJSON_EmbeddedNewlines(t *testing.T) {
	content := "{\"facts\": [\"first\nfact\", \"second fact\"]}"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(successBody(content))
	}))
	defer server.Close()

	var delays []time.Duration
	client := newTestClient(server.URL, 3, &delays)

	var out struct {
		Facts []string `json:"facts"`
	}
	if err := client.CompleteJSON(context.Background(), "prompt", 0.4, &out); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if len(out.Facts) != 2 {
		t.Fatalf("facts = %v, want 2 entries", out.Facts)
	}
}

func TestCompleteJSON_MalformedReturnsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(successBody("this is not json at all"))
	}))
	defer server.Close()

	var delays []time.Duration
	client := newTestClient(server.URL, 3, &delays)

	var out map[string]any
	err := client.CompleteJSON(context.Background(), "prompt", 0.4, &out)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestDecodeLenient_StrictFirst(t *testing.T) {
	var out struct {
		A string `json:"a"`
	}
	if err := DecodeLenient(`{"a": "line one\nline two"}`, &out); err != nil {
		t.Fatalf("strict decode failed: %v", err)
	}
	if out.A != "line one\nline two" {
		t.Errorf("escaped newline must survive strict parse, got %q", out.A)
	}
}
