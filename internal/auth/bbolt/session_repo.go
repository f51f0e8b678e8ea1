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

// SessionRepository is a BoltDB auth.SessionRepository.
type SessionRepository struct {
	db *bbolt.DB
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

type sessionRecord struct {
	Identity  string    `json:"identity"`
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r sessionRecord) toSession() (*auth.Session, error) {
	id, err := auth.ParseIdentity(r.Identity)
	if err != nil {
		return nil, err
	}
	return &auth.Session{
		Identity:  id,
		TokenHash: r.TokenHash,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}, nil
}

var errDuplicateToken = errors.New("token hash already bound to another identity")

// Replace writes session and drops the previous token entry of its identity.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	payload, err := json.Marshal(sessionRecord{
		Identity:  session.Identity.String(),
		TokenHash: session.TokenHash,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}

	err = update(ctx, r.db, func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		tokens := tx.Bucket(tokensBucket)
		key := session.Identity[:]

		if owner := tokens.Get([]byte(session.TokenHash)); owner != nil && string(owner) != string(key) {
			return errDuplicateToken
		}

		if prev := sessions.Get(key); prev != nil {
			var rec sessionRecord
			if err := json.Unmarshal(prev, &rec); err != nil {
				return err
			}
			if err := tokens.Delete([]byte(rec.TokenHash)); err != nil {
				return err
			}
		}

		if err := sessions.Put(key, payload); err != nil {
			return err
		}
		return tokens.Put([]byte(session.TokenHash), key)
	})
	if err != nil {
		if errors.Is(err, errDuplicateToken) {
			return oops.Code("SESSION_DUPLICATE_TOKEN").Wrap(err)
		}
		return oops.Code("SESSION_REPLACE_FAILED").
			With("identity", session.Identity.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash resolves a session through the token bucket.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var rec sessionRecord
	err := view(ctx, r.db, func(tx *bbolt.Tx) error {
		return lookup(tx, tokenHash, &rec)
	})
	return decodeSession(rec, err, "SESSION_GET_FAILED")
}

// DeleteByIdentity removes the identity's session and token entry.
func (r *SessionRepository) DeleteByIdentity(ctx context.Context, identity auth.Identity) error {
	err := update(ctx, r.db, func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		data := sessions.Get(identity[:])
		if data == nil {
			return nil
		}
		var rec sessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := tx.Bucket(tokensBucket).Delete([]byte(rec.TokenHash)); err != nil {
			return err
		}
		return sessions.Delete(identity[:])
	})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("identity", identity.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByTokenHash removes and returns the session bound to tokenHash.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var rec sessionRecord
	err := update(ctx, r.db, func(tx *bbolt.Tx) error {
		if err := lookup(tx, tokenHash, &rec); err != nil {
			return err
		}
		id, err := auth.ParseIdentity(rec.Identity)
		if err != nil {
			return err
		}
		if err := tx.Bucket(tokensBucket).Delete([]byte(tokenHash)); err != nil {
			return err
		}
		return tx.Bucket(sessionsBucket).Delete(id[:])
	})
	return decodeSession(rec, err, "SESSION_DELETE_FAILED")
}

// DeleteExpired scans the session bucket and removes expired entries.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := update(ctx, r.db, func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		tokens := tx.Bucket(tokensBucket)

		var expired [][]byte
		var hashes []string
		err := sessions.ForEach(func(k, v []byte) error {
			var rec sessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
				hashes = append(hashes, rec.TokenHash)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for i, k := range expired {
			if err := tokens.Delete([]byte(hashes[i])); err != nil {
				return err
			}
			if err := sessions.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

// lookup reads the session bound to tokenHash, checking that the identity
// still points back at the same token.
func lookup(tx *bbolt.Tx, tokenHash string, rec *sessionRecord) error {
	id := tx.Bucket(tokensBucket).Get([]byte(tokenHash))
	if id == nil {
		return auth.ErrNotFound
	}
	data := tx.Bucket(sessionsBucket).Get(id)
	if data == nil {
		return auth.ErrNotFound
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return err
	}
	if rec.TokenHash != tokenHash {
		return auth.ErrNotFound
	}
	return nil
}

func decodeSession(rec sessionRecord, err error, code string) (*auth.Session, error) {
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code(code).Wrap(err)
	}
	session, err := rec.toSession()
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	return session, nil
}
