package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryLeeway refreshes tokens shortly before the API would reject them.
const expiryLeeway = 30 * time.Second

// TokenExpiry reads the exp claim of an access token without verifying its
// signature. The signing key belongs to the content API; the claim is only
// used to avoid sending tokens that are known to be stale.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpired reports whether token carries an exp claim in the past.
// Opaque tokens are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !now.Add(expiryLeeway).Before(exp)
}

// ServiceAuth holds the service account session used by background work and
// by the search backends.
type ServiceAuth struct {
	client   *Client
	username string
	password string
	now      func() time.Time

	mu    sync.Mutex
	token string
}

// NewServiceAuth creates a token source for the service account.
func NewServiceAuth(client *Client, username, password string) *ServiceAuth {
	return &ServiceAuth{
		client:   client,
		username: username,
		password: password,
		now:      time.Now,
	}
}

// Token returns a cached access token, logging in when none is cached or the
// cached one has expired.
func (s *ServiceAuth) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && !TokenExpired(s.token, s.now()) {
		return s.token, nil
	}
	if s.username == "" {
		return "", errors.New("service credentials are not configured")
	}

	token, err := s.client.Login(ctx, s.username, s.password)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate service account: %w", err)
	}
	s.token = token
	return token, nil
}

// Invalidate drops the cached token so the next Token call logs in again.
func (s *ServiceAuth) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// WithToken runs fn with the service token and retries it once with a fresh
// token when the API answers 401.
func (s *ServiceAuth) WithToken(ctx context.Context, fn func(token string) error) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	s.Invalidate()
	token, err = s.Token(ctx)
	if err != nil {
		return err
	}
	return fn(token)
}
