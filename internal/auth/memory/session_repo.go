// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// SessionRepository is an in-memory auth.SessionRepository.
type SessionRepository struct {
	mu         sync.Mutex
	byIdentity map[auth.Identity]*auth.Session
	byToken    map[string]auth.Identity
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byIdentity: make(map[auth.Identity]*auth.Session),
		byToken:    make(map[string]auth.Identity),
	}
}

// Replace stores session, dropping the identity's previous session and token.
func (r *SessionRepository) Replace(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, taken := r.byToken[session.TokenHash]; taken && owner != session.Identity {
		return oops.Code("SESSION_DUPLICATE_TOKEN").Errorf("token hash already bound to another identity")
	}

	if prev, ok := r.byIdentity[session.Identity]; ok {
		delete(r.byToken, prev.TokenHash)
	}

	stored := *session
	r.byIdentity[session.Identity] = &stored
	r.byToken[session.TokenHash] = session.Identity
	return nil
}

// GetByTokenHash retrieves a session through the token index.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.lookupLocked(tokenHash)
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	out := *session
	return &out, nil
}

// DeleteByIdentity removes the identity's session and its token entry.
func (r *SessionRepository) DeleteByIdentity(_ context.Context, identity auth.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.byIdentity[identity]; ok {
		delete(r.byToken, session.TokenHash)
		delete(r.byIdentity, identity)
	}
	return nil
}

// DeleteByTokenHash removes and returns the session bound to tokenHash.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.lookupLocked(tokenHash)
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(r.byToken, tokenHash)
	delete(r.byIdentity, session.Identity)
	return session, nil
}

// DeleteExpired removes every session expired at now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for identity, session := range r.byIdentity {
		if session.IsExpiredAt(now) {
			delete(r.byToken, session.TokenHash)
			delete(r.byIdentity, identity)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byIdentity)
}

func (r *SessionRepository) lookupLocked(tokenHash string) (*auth.Session, bool) {
	identity, ok := r.byToken[tokenHash]
	if !ok {
		return nil, false
	}
	session, ok := r.byIdentity[identity]
	if !ok || session.TokenHash != tokenHash {
		return nil, false
	}
	return session, true
}
