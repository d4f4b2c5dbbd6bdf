package gmb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// TokenSource supplies a valid bearer token for the review platform API.
//
// Implementations must be safe for concurrent use; the pipeline calls Token
// before every platform request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, typically injected from the
// environment in development. It never refreshes.
type StaticTokenSource struct {
	AccessToken string
}

// Token returns the configured token, or ErrAuth when none is set.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	if strings.TrimSpace(s.AccessToken) == "" {
		return "", fmt.Errorf("%w: no static token configured", ErrAuth)
	}
	return s.AccessToken, nil
}

// RefreshFunc obtains a fresh token and its expiry from the external
// credential facility (OAuth refresh, metadata server, ...). The mechanics of
// credential bootstrapping stay outside this package.
type RefreshFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// CachingTokenSource caches a bearer token and refreshes it synchronously
// when it is missing or about to expire. A mutex serializes refreshes so the
// shared token/expiry pair has a single writer even if multiple location
// pipelines ever run in parallel.
//
// The server currently wires StaticTokenSource from GMB_ACCESS_TOKEN; this
// source becomes the production path once the deployment's credential
// facility supplies a RefreshFunc.
type CachingTokenSource struct {
	refresh RefreshFunc

	// ExpirySkew treats a token as stale this long before its actual
	// expiry, absorbing clock drift and request latency.
	ExpirySkew time.Duration

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time // test seam
}

// NewCachingTokenSource wraps refresh with an in-memory token cache.
func NewCachingTokenSource(refresh RefreshFunc) *CachingTokenSource {
	return &CachingTokenSource{
		refresh:    refresh,
		ExpirySkew: 30 * time.Second,
		now:        time.Now,
	}
}

// Token returns the cached token when still valid, otherwise refreshes while
// holding the lock (callers block until the refresh completes). A refresh
// failure wraps ErrAuth and leaves the previous state untouched.
func (s *CachingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(s.ExpirySkew).Before(s.expiry) {
		return s.token, nil
	}

	token, expiry, err := s.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	s.token, s.expiry = token, expiry
	return s.token, nil
}
