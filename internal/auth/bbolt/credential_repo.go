// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.etcd.io/bbolt"

	"github.com/holomush/holoauth/internal/auth"
)

// CredentialRepository is a BoltDB auth.CredentialRepository.
type CredentialRepository struct {
	db *bbolt.DB
}

var _ auth.CredentialRepository = (*CredentialRepository)(nil)

type credentialRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r credentialRecord) toCredential() (*auth.Credential, error) {
	id, err := auth.ParseIdentity(r.ID)
	if err != nil {
		return nil, err
	}
	return &auth.Credential{
		ID:           id,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// Insert stores cred under both buckets in one transaction.
func (r *CredentialRepository) Insert(ctx context.Context, cred *auth.Credential) error {
	payload, err := json.Marshal(credentialRecord{
		ID:           cred.ID.String(),
		Username:     cred.Username,
		PasswordHash: cred.PasswordHash,
		CreatedAt:    cred.CreatedAt,
	})
	if err != nil {
		return oops.Code("CREDENTIAL_ENCODE_FAILED").Wrap(err)
	}

	err = update(ctx, r.db, func(tx *bbolt.Tx) error {
		usernames := tx.Bucket(usernamesBucket)
		creds := tx.Bucket(credentialsBucket)

		if usernames.Get([]byte(cred.Username)) != nil {
			return oops.Code("CREDENTIAL_USERNAME_TAKEN").
				With("username", cred.Username).
				Wrap(auth.ErrUsernameTaken)
		}
		if creds.Get(cred.ID[:]) != nil {
			return oops.Code("CREDENTIAL_DUPLICATE_ID").
				With("identity", cred.ID.String()).
				Errorf("identity already in use")
		}

		if err := creds.Put(cred.ID[:], payload); err != nil {
			return err
		}
		return usernames.Put([]byte(cred.Username), cred.ID[:])
	})
	if err != nil {
		if _, ok := oops.AsOops(err); ok {
			return err
		}
		return oops.Code("CREDENTIAL_INSERT_FAILED").
			With("username", cred.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername resolves username through the username bucket.
func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	var rec credentialRecord
	err := view(ctx, r.db, func(tx *bbolt.Tx) error {
		id := tx.Bucket(usernamesBucket).Get([]byte(username))
		if id == nil {
			return auth.ErrNotFound
		}
		data := tx.Bucket(credentialsBucket).Get(id)
		if data == nil {
			return auth.ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("username", username).
			Wrap(err)
	}

	cred, err := rec.toCredential()
	if err != nil {
		return nil, oops.Code("CREDENTIAL_DECODE_FAILED").Wrap(err)
	}
	return cred, nil
}

// Delete removes the credential and its username entry.
func (r *CredentialRepository) Delete(ctx context.Context, id auth.Identity) error {
	err := update(ctx, r.db, func(tx *bbolt.Tx) error {
		creds := tx.Bucket(credentialsBucket)
		data := creds.Get(id[:])
		if data == nil {
			return nil
		}
		var rec credentialRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := tx.Bucket(usernamesBucket).Delete([]byte(rec.Username)); err != nil {
			return err
		}
		return creds.Delete(id[:])
	})
	if err != nil {
		return oops.Code("CREDENTIAL_DELETE_FAILED").
			With("identity", id.String()).
			Wrap(err)
	}
	return nil
}
