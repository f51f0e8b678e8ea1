// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes  = 32             // 32 bytes = 64 hex chars
	SessionTokenExpiry = 24 * time.Hour // default session lifetime
)

// Session binds an identity to the hash of its bearer token.
// The plaintext token is never stored.
type Session struct {
	Identity  Identity
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time // zero means the session never expires
}

// NewSession creates a validated Session. A ttl of zero creates a session
// without expiry.
func NewSession(identity Identity, tokenHash string, now time.Time, ttl time.Duration) (*Session, error) {
	if IsZeroIdentity(identity) {
		return nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl < 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("ttl cannot be negative")
	}

	s := &Session{
		Identity:  identity,
		TokenHash: tokenHash,
		CreatedAt: now.UTC(),
	}
	if ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(ttl)
	}
	return s, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.After(s.ExpiresAt)
}

// TTLAt returns the remaining lifetime at t, or zero for sessions without expiry.
func (s *Session) TTLAt(t time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(t)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA256 hash of a session token.
// This is used to securely store tokens and to index sessions by token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence. Implementations keep a
// primary index by identity and a secondary index by token hash, and update
// both in the same atomic step.
type SessionRepository interface {
	// Replace stores session, atomically removing any prior session of the
	// same identity together with its token-hash index entry.
	Replace(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns an error wrapping ErrNotFound if none exists.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByIdentity removes the identity's session if present. Idempotent.
	DeleteByIdentity(ctx context.Context, identity Identity) error

	// DeleteByTokenHash atomically removes and returns the session with the
	// given token hash. Returns an error wrapping ErrNotFound if none exists.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteExpired removes all sessions expired at now and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
