package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNoToken = errors.New("no identity token available")

// RefreshFunc asks the identity platform for a fresh ID token and its
// expiration.
type RefreshFunc func(ctx context.Context) (token string, expiresAt time.Time, err error)

// refreshSkew is how close to expiry a token may get before Token refreshes
// it instead of handing it out.
const refreshSkew = time.Minute

// TokenSource holds the ID token the managed identity platform issued and
// refreshes it near expiry. Refresh runs independently of anything else in
// flight; callers snapshot a token per request.
type TokenSource struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	refresh   RefreshFunc
}

// NewTokenSource starts from an already-issued token. refresh may be nil,
// in which case the token is served until it expires and then ErrNoToken.
func NewTokenSource(token string, expiresAt time.Time, refresh RefreshFunc) *TokenSource {
	return &TokenSource{
		token:     token,
		expiresAt: expiresAt,
		refresh:   refresh,
	}
}

// StaticTokenSource never refreshes; for tests and API-key setups.
func StaticTokenSource(token string) *TokenSource {
	return &TokenSource{token: token}
}

// Token returns the current token, refreshing first when it is within the
// expiry skew.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.expiresAt.IsZero() || time.Until(ts.expiresAt) > refreshSkew {
		if ts.token == "" {
			return "", ErrNoToken
		}
		return ts.token, nil
	}

	if ts.refresh == nil {
		if time.Now().Before(ts.expiresAt) {
			return ts.token, nil
		}
		return "", ErrNoToken
	}

	token, expiresAt, err := ts.refresh(ctx)
	if err != nil {
		// Hand out the old token while it is still technically valid.
		if time.Now().Before(ts.expiresAt) {
			return ts.token, nil
		}
		return "", err
	}
	ts.token = token
	ts.expiresAt = expiresAt
	return ts.token, nil
}

// Set replaces the stored token, e.g. after an external sign-in event.
func (ts *TokenSource) Set(token string, expiresAt time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = token
	ts.expiresAt = expiresAt
}
