// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Input limits. Usernames are compared byte for byte, so no case folding or
// normalization happens anywhere.
const (
	MaxUsernameLength = 64   // bytes
	MaxPasswordLength = 1024 // bytes
)

// Credential binds a username to an identity and a password hash.
// Credentials are never mutated after creation.
type Credential struct {
	ID           Identity
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewCredential creates a validated Credential with a fresh identity.
func NewCredential(username, passwordHash string) (*Credential, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	id, err := NewIdentity()
	if err != nil {
		return nil, err
	}

	return &Credential{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername checks a username against the input policy:
// non-empty, valid UTF-8, at most MaxUsernameLength bytes.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_INPUT").Wrapf(ErrInvalidInput, "username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("max", MaxUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at most %d bytes", MaxUsernameLength)
	}
	if !utf8.ValidString(username) {
		return oops.Code("AUTH_INVALID_INPUT").Wrapf(ErrInvalidInput, "username must be valid UTF-8")
	}
	return nil
}

// ValidatePassword checks a password against the input policy:
// non-empty, at most MaxPasswordLength bytes.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code("AUTH_INVALID_INPUT").Wrapf(ErrInvalidInput, "password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("max", MaxPasswordLength).
			Wrapf(ErrInvalidInput, "password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

// CredentialRepository manages credential persistence.
type CredentialRepository interface {
	// Insert stores a new credential. It must atomically reject a second
	// credential with the same username, returning an error wrapping
	// ErrUsernameTaken.
	Insert(ctx context.Context, cred *Credential) error

	// GetByUsername retrieves a credential by exact username.
	// Returns an error wrapping ErrNotFound if none exists.
	GetByUsername(ctx context.Context, username string) (*Credential, error)

	// Delete removes a credential from every index. Deleting an unknown
	// identity is not an error.
	Delete(ctx context.Context, id Identity) error
}
