// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

// CredentialStore creates, verifies and deletes credentials.
type CredentialStore interface {
	// Create registers a new credential. Fails with ErrUsernameTaken when
	// the username exists; no state changes on any failure.
	Create(ctx context.Context, username, password string) error

	// Authenticate returns the identity bound to username when password
	// matches. Returns ErrInvalidCredential when the username is unknown or
	// the password is wrong; the two are indistinguishable.
	Authenticate(ctx context.Context, username, password string) (Identity, error)

	// Delete removes the credential for id. Idempotent.
	Delete(ctx context.Context, id Identity) error
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Credentials implements CredentialStore on top of a CredentialRepository.
type Credentials struct {
	repo   CredentialRepository
	hasher PasswordHasher
	logger *slog.Logger

	// dummyHash is verified for unknown usernames. Defaults to
	// dummyPasswordHash; hashers with other parameters should use a dummy
	// of matching cost.
	dummyHash string
}

// CredentialsOption configures Credentials.
type CredentialsOption func(*Credentials)

// WithCredentialsLogger sets the logger used for verification problems.
func WithCredentialsLogger(logger *slog.Logger) CredentialsOption {
	return func(c *Credentials) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCredentials creates a CredentialStore backed by repo.
func NewCredentials(repo CredentialRepository, hasher PasswordHasher, opts ...CredentialsOption) (*Credentials, error) {
	if repo == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("credential repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	c := &Credentials{
		repo:      repo,
		hasher:    hasher,
		logger:    slog.Default(),
		dummyHash: dummyPasswordHash,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Give unknown-username checks the same cost as real ones.
	if hasher.NeedsUpgrade(c.dummyHash) {
		h, err := hasher.Hash("holoauth-dummy-password")
		if err != nil {
			return nil, oops.Code("AUTH_HASH_FAILED").
				With("operation", "hash dummy password").
				Wrap(errors.Join(ErrHashing, err))
		}
		c.dummyHash = h
	}

	return c, nil
}

// Create registers a new credential.
//
// The password is hashed before the repository is touched, so no store lock
// is held during key derivation. The repository insert is the authoritative
// uniqueness check; the lookup beforehand only saves hashing work.
func (c *Credentials) Create(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	if _, err := c.repo.GetByUsername(ctx, username); err == nil {
		return oops.Code("AUTH_USERNAME_TAKEN").
			With("username", username).
			Wrap(ErrUsernameTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_CREATE_FAILED").
			With("operation", "get credential by username").
			Wrap(err)
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(errors.Join(ErrHashing, err))
	}

	cred, err := NewCredential(username, hash)
	if err != nil {
		return oops.Code("AUTH_CREATE_FAILED").
			With("operation", "build credential").
			Wrap(err)
	}

	if err := c.repo.Insert(ctx, cred); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return oops.Code("AUTH_USERNAME_TAKEN").
				With("username", username).
				Wrap(err)
		}
		return oops.Code("AUTH_CREATE_FAILED").
			With("operation", "insert credential").
			Wrap(err)
	}

	return nil
}

// Authenticate verifies username and password.
// Uses constant-time operations to prevent timing-based username enumeration.
func (c *Credentials) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	if username == "" || password == "" {
		return Identity{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredential)
	}

	cred, lookupErr := c.repo.GetByUsername(ctx, username)

	var targetHash string
	credExists := false
	switch {
	case lookupErr == nil:
		targetHash = cred.PasswordHash
		credExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = c.dummyHash
	default:
		return Identity{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get credential by username").
			Wrap(lookupErr)
	}

	// Always verify so unknown usernames cost the same as wrong passwords.
	valid, verifyErr := c.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if credExists {
			errutil.LogErrorContext(ctx, c.logger, "stored password hash failed to verify", verifyErr)
		}
		return Identity{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredential)
	}

	if !credExists || !valid || cred.Username != username {
		return Identity{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredential)
	}

	if c.hasher.NeedsUpgrade(cred.PasswordHash) {
		c.logger.DebugContext(ctx, "credential hash uses outdated parameters",
			"identity", cred.ID.String())
	}

	return cred.ID, nil
}

// Delete removes the credential for id. Deleting an unknown identity is a no-op.
func (c *Credentials) Delete(ctx context.Context, id Identity) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return oops.Code("AUTH_DELETE_FAILED").
			With("operation", "delete credential").
			With("identity", id.String()).
			Wrap(err)
	}
	return nil
}
