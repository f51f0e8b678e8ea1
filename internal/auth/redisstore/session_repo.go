// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redisstore implements auth.SessionRepository on Redis. Each session is a
// hash keyed by identity plus a string index keyed by token hash. Both keys
// carry the session expiry, so Redis evicts expired sessions on its own.
//
// The scripts touch keys they only learn while running (the previous token of
// a session, the session behind a token). On Redis Cluster every key must
// therefore hash to one slot, which the mandatory {hash tag} in the key
// prefix guarantees.
package redisstore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// DefaultKeyPrefix namespaces every key the repository writes. The braces are
// a Redis Cluster hash tag.
const DefaultKeyPrefix = "{holoauth}:"

const (
	fieldTokenHash = "token_hash"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"

	errDuplicateToken = "DUPTOKEN"
)

// KEYS: session key, token key. ARGV: identity, token hash, created ms,
// expires ms (0 for none), token key prefix.
var replaceLua = redis.NewScript(`
local owner = redis.call("GET", KEYS[2])
if owner and owner ~= ARGV[1] then
  return redis.error_reply("DUPTOKEN")
end
local prev = redis.call("HGET", KEYS[1], "token_hash")
if prev then
  redis.call("DEL", ARGV[5] .. prev)
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "token_hash", ARGV[2], "created_at", ARGV[3], "expires_at", ARGV[4])
redis.call("SET", KEYS[2], ARGV[1])
if tonumber(ARGV[4]) > 0 then
  redis.call("PEXPIREAT", KEYS[1], ARGV[4])
  redis.call("PEXPIREAT", KEYS[2], ARGV[4])
end
return 1
`)

// KEYS: token key. ARGV: session key prefix, token hash.
var deleteByTokenLua = redis.NewScript(`
local id = redis.call("GET", KEYS[1])
if not id then
  return false
end
local skey = ARGV[1] .. id
local fields = redis.call("HMGET", skey, "token_hash", "created_at", "expires_at")
redis.call("DEL", KEYS[1])
if fields[1] ~= ARGV[2] then
  return false
end
redis.call("DEL", skey)
return {id, fields[2], fields[3]}
`)

// KEYS: session key. ARGV: token key prefix.
var deleteByIdentityLua = redis.NewScript(`
local th = redis.call("HGET", KEYS[1], "token_hash")
if th then
  redis.call("DEL", ARGV[1] .. th)
end
redis.call("DEL", KEYS[1])
return 1
`)

// SessionRepository stores sessions in Redis.
type SessionRepository struct {
	client redis.UniversalClient
	prefix string
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Option configures a SessionRepository.
type Option func(*SessionRepository)

// WithKeyPrefix overrides DefaultKeyPrefix. A prefix without a hash tag is
// wrapped in one, so "app:" becomes "{app}:".
func WithKeyPrefix(prefix string) Option {
	return func(r *SessionRepository) {
		r.prefix = HashTagged(prefix)
	}
}

// HashTagged returns prefix unchanged when it already holds a non-empty
// {hash tag}, and otherwise wraps it in one. An empty prefix yields
// DefaultKeyPrefix.
func HashTagged(prefix string) string {
	if open := strings.IndexByte(prefix, '{'); open >= 0 {
		if end := strings.IndexByte(prefix[open+1:], '}'); end > 0 {
			return prefix
		}
	}
	tag := strings.TrimSuffix(prefix, ":")
	if tag == "" || strings.ContainsAny(tag, "{}") {
		return DefaultKeyPrefix
	}
	return "{" + tag + "}:"
}

// NewSessionRepository creates a SessionRepository over client.
func NewSessionRepository(client redis.UniversalClient, opts ...Option) *SessionRepository {
	r := &SessionRepository{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRepository) sessionPrefix() string { return r.prefix + "session:" }
func (r *SessionRepository) tokenPrefix() string   { return r.prefix + "token:" }

func (r *SessionRepository) sessionKey(id auth.Identity) string {
	return r.sessionPrefix() + id.String()
}

func (r *SessionRepository) tokenKey(tokenHash string) string {
	return r.tokenPrefix() + tokenHash
}

// Replace stores session and drops the identity's previous token in one script.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	err := replaceLua.Run(ctx, r.client,
		[]string{r.sessionKey(session.Identity), r.tokenKey(session.TokenHash)},
		session.Identity.String(),
		session.TokenHash,
		millis(session.CreatedAt),
		millis(session.ExpiresAt),
		r.tokenPrefix(),
	).Err()
	if err != nil {
		if strings.Contains(err.Error(), errDuplicateToken) {
			return oops.Code("SESSION_DUPLICATE_TOKEN").
				With("identity", session.Identity.String()).
				Errorf("token hash already bound to another identity")
		}
		return oops.Code("SESSION_REPLACE_FAILED").
			With("identity", session.Identity.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash resolves tokenHash through the token index.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	idStr, err := r.client.Get(ctx, r.tokenKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").Wrap(err)
	}

	id, err := auth.ParseIdentity(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}

	fields, err := r.client.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").Wrap(err)
	}
	if fields[fieldTokenHash] != tokenHash {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return decodeSession(id, tokenHash, fields[fieldCreatedAt], fields[fieldExpiresAt])
}

// DeleteByIdentity removes the identity's session and token index entry.
func (r *SessionRepository) DeleteByIdentity(ctx context.Context, identity auth.Identity) error {
	err := deleteByIdentityLua.Run(ctx, r.client,
		[]string{r.sessionKey(identity)},
		r.tokenPrefix(),
	).Err()
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("identity", identity.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByTokenHash removes and returns the session bound to tokenHash.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	res, err := deleteByTokenLua.Run(ctx, r.client,
		[]string{r.tokenKey(tokenHash)},
		r.sessionPrefix(),
		tokenHash,
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	if len(res) != 3 {
		return nil, oops.Code("SESSION_DECODE_FAILED").
			With("fields", len(res)).
			Errorf("unexpected script reply")
	}

	id, err := auth.ParseIdentity(res[0])
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	return decodeSession(id, tokenHash, res[1], res[2])
}

// DeleteExpired always reports zero: expired keys are evicted by Redis.
func (r *SessionRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func decodeSession(id auth.Identity, tokenHash, created, expires string) (*auth.Session, error) {
	createdAt, err := parseMillis(created)
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("field", fieldCreatedAt).Wrap(err)
	}
	expiresAt, err := parseMillis(expires)
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("field", fieldExpiresAt).Wrap(err)
	}
	return &auth.Session{
		Identity:  id,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}
