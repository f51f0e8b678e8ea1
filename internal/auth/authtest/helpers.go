// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides test helpers for the auth package and its
// repository backends.
package authtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
)

// FastParams are argon2id parameters cheap enough for unit tests.
var FastParams = auth.Argon2Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// FastHasher returns an argon2id hasher using FastParams.
func FastHasher(t testing.TB) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(FastParams)
	require.NoError(t, err)
	return h
}

// NewCredential builds a credential with a fresh identity.
func NewCredential(t testing.TB, username string) *auth.Credential {
	t.Helper()
	cred, err := auth.NewCredential(username, "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g")
	require.NoError(t, err)
	return cred
}

// NewSession builds a session for identity with a random token hash.
// The plaintext token is returned alongside.
func NewSession(t testing.TB, identity auth.Identity, now time.Time, ttl time.Duration) (*auth.Session, string) {
	t.Helper()
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	session, err := auth.NewSession(identity, hash, now, ttl)
	require.NoError(t, err)
	return session, token
}

// NewIdentity mints an identity or fails the test.
func NewIdentity(t testing.TB) auth.Identity {
	t.Helper()
	id, err := auth.NewIdentity()
	require.NoError(t, err)
	return id
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Context returns a context cancelled when the test ends.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
