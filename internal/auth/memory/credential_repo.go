// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-memory repositories for the auth package.
// Each repository guards all of its indices with a single mutex.
package memory

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// CredentialRepository is an in-memory auth.CredentialRepository.
type CredentialRepository struct {
	mu         sync.Mutex
	byID       map[auth.Identity]*auth.Credential
	byUsername map[string]*auth.Credential
}

var _ auth.CredentialRepository = (*CredentialRepository)(nil)

// NewCredentialRepository creates an empty CredentialRepository.
func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{
		byID:       make(map[auth.Identity]*auth.Credential),
		byUsername: make(map[string]*auth.Credential),
	}
}

// Insert stores a new credential under both indices.
func (r *CredentialRepository) Insert(_ context.Context, cred *auth.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[cred.Username]; exists {
		return oops.Code("CREDENTIAL_USERNAME_TAKEN").
			With("username", cred.Username).
			Wrap(auth.ErrUsernameTaken)
	}
	if _, exists := r.byID[cred.ID]; exists {
		return oops.Code("CREDENTIAL_DUPLICATE_ID").
			With("identity", cred.ID.String()).
			Errorf("identity already in use")
	}

	stored := *cred
	r.byID[cred.ID] = &stored
	r.byUsername[cred.Username] = &stored
	return nil
}

// GetByUsername retrieves a credential by exact username.
func (r *CredentialRepository) GetByUsername(_ context.Context, username string) (*auth.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.byUsername[username]
	if !ok {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	out := *cred
	return &out, nil
}

// Delete removes a credential from both indices.
func (r *CredentialRepository) Delete(_ context.Context, id auth.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	delete(r.byUsername, cred.Username)
	return nil
}

// Len returns the number of stored credentials.
func (r *CredentialRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
