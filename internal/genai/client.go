// Package genai drafts review replies with a chat-completion model. It
// contains a minimal client for an OpenAI-compatible completions endpoint and
// the batching generator that turns reviews into validated reply drafts.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI-compatible API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the completion model used for reply drafting.
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature keeps replies varied without drifting off-tone.
	DefaultTemperature = 0.7

	// DefaultMaxCompletionTokens caps one batch's output. Sized so a full
	// batch of ten 50-100 word replies fits.
	DefaultMaxCompletionTokens = 2500

	// defaultCallTimeout bounds a single completion request.
	defaultCallTimeout = 60 * time.Second
)

// ErrNoCompletion indicates the service answered 2xx but returned no usable
// choice. Treated like any other batch failure by the generator.
var ErrNoCompletion = errors.New("completion response contained no choices")

// Client calls a chat-completions endpoint. Construct with NewClient.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpc       *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithModel overrides the completion model identifier.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithSampling sets the temperature and output-token ceiling.
func WithSampling(temperature float64, maxTokens int) ClientOption {
	return func(c *Client) {
		c.temperature = temperature
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithClientHTTP replaces the underlying HTTP client.
func WithClientHTTP(h *http.Client) ClientOption {
	return func(c *Client) { c.httpc = h }
}

// NewClient builds a completion client. baseURL falls back to DefaultBaseURL
// when empty; the remaining knobs start at the package defaults.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxCompletionTokens,
		httpc:       &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire shapes for the chat-completions endpoint. Only the fields this
// service uses are modeled; unknown response fields are ignored.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one user prompt and returns the model's raw text output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:               c.model,
		Messages:            []chatMessage{{Role: "user", Content: prompt}},
		Temperature:         c.temperature,
		MaxCompletionTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion request failed: status %d: %s", resp.StatusCode, detail)
	}

	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(body.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return body.Choices[0].Message.Content, nil
}
