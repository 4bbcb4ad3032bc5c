// Package transcribe defines the transcription collaborator contract and a
// Deepgram-compatible HTTP implementation of it.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrNoTranscript means the service answered but produced no usable
	// diarized transcript.
	ErrNoTranscript = errors.New("transcription result contains no transcript")
)

// Options control a transcription request.
type Options struct {
	// Diarize tags paragraphs with numeric speaker indices.
	Diarize bool
	// SmartFormat applies punctuation and formatting to the output.
	SmartFormat bool
}

// Result models the relevant subset of the transcription service response.
type Result struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Paragraphs struct {
					Transcript string `json:"transcript"`
				} `json:"paragraphs"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// SpeakerTranscript returns the diarized paragraph transcript, where each
// speaker turn is prefixed "Speaker N:".
func (r *Result) SpeakerTranscript() (string, error) {
	alt, err := r.firstAlternative()
	if err != nil {
		return "", err
	}
	if alt.Paragraphs.Transcript != "" {
		return alt.Paragraphs.Transcript, nil
	}
	if alt.Transcript != "" {
		return alt.Transcript, nil
	}
	return "", ErrNoTranscript
}

func (r *Result) firstAlternative() (*struct {
	Transcript string `json:"transcript"`
	Paragraphs struct {
		Transcript string `json:"transcript"`
	} `json:"paragraphs"`
}, error) {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return nil, ErrNoTranscript
	}
	return &r.Results.Channels[0].Alternatives[0], nil
}

// Transcriber is the collaborator contract for speech-to-text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, mimeType string, opts Options) (*Result, error)
}

const (
	defaultListenURL = "https://api.deepgram.com/v1/listen"
	defaultModel     = "nova"
	defaultLanguage  = "en-US"
)

// DeepgramClient transcribes pre-recorded audio via the Deepgram listen API.
type DeepgramClient struct {
	httpClient *http.Client
	listenURL  string
	apiKey     string
	model      string
	language   string
}

// DeepgramOption configures a DeepgramClient.
type DeepgramOption func(*DeepgramClient)

// WithListenURL overrides the listen endpoint (tests point this at a local
// server).
func WithListenURL(url string) DeepgramOption {
	return func(c *DeepgramClient) { c.listenURL = url }
}

// WithModel overrides the transcription model.
func WithModel(model string) DeepgramOption {
	return func(c *DeepgramClient) { c.model = model }
}

// NewDeepgramClient creates a transcription client.
func NewDeepgramClient(apiKey string, opts ...DeepgramOption) *DeepgramClient {
	c := &DeepgramClient{
		// Long recordings take minutes to transcribe.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		listenURL:  defaultListenURL,
		apiKey:     apiKey,
		model:      defaultModel,
		language:   defaultLanguage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads the audio stream and returns the parsed result.
func (c *DeepgramClient) Transcribe(ctx context.Context, audio io.Reader, mimeType string, opts Options) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.listenURL, audio)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("model", c.model)
	q.Set("language", c.language)
	q.Set("diarize", strconv.FormatBool(opts.Diarize))
	q.Set("smart_format", strconv.FormatBool(opts.SmartFormat))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Authorization", "Token "+c.apiKey)
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transcription service: unexpected status code %d: %s", resp.StatusCode, body)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode transcription result: %w", err)
	}
	return &result, nil
}
