// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// The sessions table is keyed by identity with a unique token_hash column,
// so both indices change in the same statement.
type SessionRepository struct {
	pool poolIface
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `identity, token_hash, created_at, expires_at`

// Replace upserts the identity's session row.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (identity, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`,
		session.Identity.String(),
		session.TokenHash,
		session.CreatedAt,
		expiresAtArg(session.ExpiresAt),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return oops.Code("SESSION_DUPLICATE_TOKEN").Wrap(err)
		}
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "upsert session").
			With("identity", session.Identity.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// DeleteByIdentity removes the identity's session if present.
func (r *SessionRepository) DeleteByIdentity(ctx context.Context, identity auth.Identity) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE identity = $1`, identity.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by identity").
			With("identity", identity.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByTokenHash removes and returns the session with tokenHash.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM sessions
		WHERE token_hash = $1
		RETURNING `+sessionColumns, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by token hash").
			Wrap(err)
	}
	return session, nil
}

// DeleteExpired removes all sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_CLEANUP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		identity  string
		session   auth.Session
		createdAt time.Time
		expiresAt pgtype.Timestamptz
	)
	if err := row.Scan(&identity, &session.TokenHash, &createdAt, &expiresAt); err != nil {
		return nil, err
	}

	id, err := auth.ParseIdentity(identity)
	if err != nil {
		return nil, err
	}
	session.Identity = id
	session.CreatedAt = createdAt.UTC()
	if expiresAt.Valid {
		session.ExpiresAt = expiresAt.Time.UTC()
	}
	return &session, nil
}

// expiresAtArg maps the zero expiry to SQL NULL.
func expiresAtArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
