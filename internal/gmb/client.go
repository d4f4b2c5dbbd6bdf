package gmb

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the platform's v4 location API root.
	DefaultBaseURL = "https://mybusiness.googleapis.com/v4"

	// DefaultCallTimeout bounds every single platform request.
	DefaultCallTimeout = 30 * time.Second

	// DefaultPageInterval paces consecutive review pages to respect the
	// platform's rate limits.
	DefaultPageInterval = 2 * time.Second
)

// Client talks to the review platform. It owns the base URL, the bearer-token
// source, and the HTTP transport; the higher-level operations live in
// fetcher.go (ListRecentReviews) and publisher.go (PublishReply).
//
// The zero value is not usable; construct with NewClient.
type Client struct {
	baseURL string
	tokens  TokenSource
	httpc   *http.Client

	// pageInterval is the fixed delay between review pages.
	pageInterval time.Duration

	now func() time.Time // test seam for the cutoff computation
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests point it at an
// httptest server; production may add instrumented transports).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithCallTimeout bounds each individual platform call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// WithPageInterval sets the fixed delay between review pages. Zero disables
// pacing (tests).
func WithPageInterval(d time.Duration) Option {
	return func(c *Client) { c.pageInterval = d }
}

// WithClock overrides the time source used for the cutoff computation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient builds a platform client rooted at baseURL (DefaultBaseURL when
// empty) that authenticates every request through tokens.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      baseURL,
		tokens:       tokens,
		httpc:        &http.Client{Timeout: DefaultCallTimeout},
		pageInterval: DefaultPageInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// authorize obtains a bearer token and stamps it on req.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
