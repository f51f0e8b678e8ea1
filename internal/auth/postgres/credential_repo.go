// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// credentialsIDConstraint is the primary key constraint of the credentials table.
const credentialsIDConstraint = "credentials_pkey"

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
// Username uniqueness is enforced by the credentials_username_key constraint.
type CredentialRepository struct {
	pool poolIface
}

var _ auth.CredentialRepository = (*CredentialRepository)(nil)

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(pool poolIface) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Insert stores a new credential.
func (r *CredentialRepository) Insert(ctx context.Context, cred *auth.Credential) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO credentials (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		cred.ID.String(),
		cred.Username,
		cred.PasswordHash,
		cred.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == credentialsIDConstraint {
				return oops.Code("CREDENTIAL_DUPLICATE_ID").
					With("identity", cred.ID.String()).
					Wrap(err)
			}
			return oops.Code("CREDENTIAL_USERNAME_TAKEN").
				With("username", cred.Username).
				Wrap(errors.Join(auth.ErrUsernameTaken, err))
		}
		return oops.Code("CREDENTIAL_INSERT_FAILED").
			With("operation", "insert credential").
			With("username", cred.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves a credential by exact username.
func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	var (
		id        string
		cred      auth.Credential
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM credentials
		WHERE username = $1
	`, username).Scan(&id, &cred.Username, &cred.PasswordHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential by username").
			Wrap(err)
	}

	cred.ID, err = auth.ParseIdentity(id)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_DECODE_FAILED").
			With("operation", "parse credential id").
			Wrap(err)
	}
	cred.CreatedAt = createdAt.UTC()
	return &cred, nil
}

// Delete removes a credential. Deleting an unknown identity is a no-op.
func (r *CredentialRepository) Delete(ctx context.Context, id auth.Identity) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("CREDENTIAL_DELETE_FAILED").
			With("operation", "delete credential").
			With("identity", id.String()).
			Wrap(err)
	}
	return nil
}
