package artifact

import (
	"context"
	"sync"
	"time"
)

// CredentialProvider yields a bearer token for the artifact service.
// Implementations refresh as needed; callers never cache the token.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials returns a fixed token. Useful for services fronted
// by long-lived API keys and for tests.
type StaticCredentials string

func (s StaticCredentials) Token(_ context.Context) (string, error) {
	return string(s), nil
}

// ExpiringCredentials wraps a refresh function and caches its result
// until shortly before expiry. Safe for concurrent use.
type ExpiringCredentials struct {
	Refresh func(ctx context.Context) (token string, expiresIn time.Duration, err error)

	// Leeway is subtracted from the reported lifetime so a token is
	// never used at the edge of its validity window.
	Leeway time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

func (c *ExpiringCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	token, expiresIn, err := c.Refresh(ctx)
	if err != nil {
		return "", err
	}

	leeway := c.Leeway
	if leeway == 0 {
		leeway = 30 * time.Second
	}
	c.token = token
	c.expires = time.Now().Add(expiresIn - leeway)
	return token, nil
}
