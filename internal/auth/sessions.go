// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// SessionStore issues, resolves and revokes session tokens.
type SessionStore interface {
	// Create mints a fresh token for id, replacing and invalidating any
	// previous session of id. Only RNG or backend failures produce errors.
	Create(ctx context.Context, id Identity) (token string, err error)

	// Delete removes the session of id if present. Idempotent.
	Delete(ctx context.Context, id Identity) error

	// Resolve returns the identity bound to token. Unknown and expired
	// tokens fail with ErrUnknownToken.
	Resolve(ctx context.Context, token string) (Identity, error)

	// Revoke removes the session bound to token and returns its identity.
	// Unknown and expired tokens fail with ErrUnknownToken.
	Revoke(ctx context.Context, token string) (Identity, error)
}

// Sessions implements SessionStore on top of a SessionRepository.
type Sessions struct {
	repo SessionRepository
	ttl  time.Duration

	// now is used for timestamps. Can be overridden for testing.
	now func() time.Time
	// newToken is used for generating tokens. Can be overridden for testing.
	newToken func() (token, hash string, err error)
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithSessionTTL sets the session lifetime. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) SessionsOption {
	return func(s *Sessions) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions creates a SessionStore backed by repo.
func NewSessions(repo SessionRepository, opts ...SessionsOption) (*Sessions, error) {
	if repo == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("session repository is required")
	}

	s := &Sessions{
		repo:     repo,
		ttl:      SessionTokenExpiry,
		now:      time.Now,
		newToken: GenerateSessionToken,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.ttl < 0 {
		return nil, oops.Code("SESSION_INVALID_CONFIG").
			With("ttl", s.ttl.String()).
			Errorf("session ttl cannot be negative")
	}
	return s, nil
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Create mints a token for id and stores its hash, replacing any prior session.
func (s *Sessions) Create(ctx context.Context, id Identity) (string, error) {
	token, tokenHash, err := s.newToken()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(id, tokenHash, s.now(), s.ttl)
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := s.repo.Replace(ctx, session); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("identity", id.String()).
			Wrap(err)
	}

	return token, nil
}

// Delete removes the session of id if present.
func (s *Sessions) Delete(ctx context.Context, id Identity) error {
	if err := s.repo.DeleteByIdentity(ctx, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by identity").
			With("identity", id.String()).
			Wrap(err)
	}
	return nil
}

// Resolve returns the identity bound to token.
func (s *Sessions) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, oops.Code("SESSION_UNKNOWN_TOKEN").Wrap(ErrUnknownToken)
	}

	tokenHash := HashSessionToken(token)
	session, err := s.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, oops.Code("SESSION_UNKNOWN_TOKEN").Wrap(ErrUnknownToken)
		}
		return Identity{}, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		// Expired tokens are removed on observation; a failure here only
		// delays cleanup until the next purge.
		_, _ = s.repo.DeleteByTokenHash(ctx, tokenHash) //nolint:errcheck // best effort
		return Identity{}, oops.Code("SESSION_UNKNOWN_TOKEN").
			With("reason", "expired").
			Wrap(ErrUnknownToken)
	}

	return session.Identity, nil
}

// Revoke removes the session bound to token and returns its identity.
// The lookup and removal are one repository call, so a session that replaced
// the token concurrently is never removed.
func (s *Sessions) Revoke(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, oops.Code("SESSION_UNKNOWN_TOKEN").Wrap(ErrUnknownToken)
	}

	session, err := s.repo.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, oops.Code("SESSION_UNKNOWN_TOKEN").Wrap(ErrUnknownToken)
		}
		return Identity{}, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		return Identity{}, oops.Code("SESSION_UNKNOWN_TOKEN").
			With("reason", "expired").
			Wrap(ErrUnknownToken)
	}

	return session.Identity, nil
}

// PurgeExpired removes all expired sessions and returns how many were removed.
func (s *Sessions) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}
