// Package completion wraps an OpenAI-compatible chat completion backend with
// retry, exponential backoff, and lenient JSON decoding so the rest of the
// pipeline sees a best-effort call with a normalized result shape.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1/chat/completions"
	defaultModel      = "gpt-3.5-turbo-16k"
	defaultSystemRole = "You are a helpful, accurate assistant."

	// maxResponseSize bounds the response body read from the backend.
	maxResponseSize = 10 * 1024 * 1024
)

// Client calls a chat completion backend. Configuration is read-only after
// construction, so a single Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	retry      RetryConfig
	logger     *slog.Logger

	// sleep is swapped out by tests to observe the backoff schedule.
	sleep func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.httpClient = c }
}

// WithBaseURL overrides the chat-completions endpoint.
func WithBaseURL(url string) Option {
	return func(client *Client) { client.baseURL = url }
}

// WithModel overrides the model name sent to the backend.
func WithModel(model string) Option {
	return func(client *Client) { client.model = model }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(client *Client) { client.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) { client.logger = logger }
}

// NewClient creates a completion client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 180 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      defaultModel,
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is the normalized result of a successful completion call.
type Response struct {
	Content      string
	FinishReason string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string      `json:"finish_reason"`
		Message      chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt to the backend, retrying transient failures with
// a doubling backoff up to the configured attempt ceiling. A client-side
// rejection (HTTP 400) fails immediately: the prompt is malformed and retries
// cannot help.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, systemRole string) (*Response, error) {
	if systemRole == "" {
		systemRole = defaultSystemRole
	}
	if !strings.HasSuffix(prompt, "\n") {
		prompt += "\n"
	}

	delay := c.retry.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, err := c.send(ctx, prompt, temperature, systemRole)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if IsFatal(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		c.logger.Warn("completion call failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
		c.sleep(delay)
		delay = time.Duration(float64(delay) * c.retry.BackoffMultiplier)
		if c.retry.MaxBackoff > 0 && delay > c.retry.MaxBackoff {
			delay = c.retry.MaxBackoff
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// CompleteJSON runs Complete and decodes the response leniently into out.
// Any failure, network or malformed output, surfaces as ErrNoResult so
// callers can substitute empty results uniformly.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, temperature float64, out any) error {
	resp, err := c.Complete(ctx, prompt, temperature, "")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoResult, err)
	}
	if err := DecodeLenient(resp.Content, out); err != nil {
		return fmt.Errorf("%w: %s", ErrNoResult, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, prompt string, temperature float64, systemRole string) (*Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemRole},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return nil, NewFatalError(resp.StatusCode,
			fmt.Errorf("backend rejected request: status %d: %s", resp.StatusCode, truncate(respBody, 200)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	return &Response{
		Content:      parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
