// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
)

// CredentialRepositoryContract runs the behaviour every
// auth.CredentialRepository must share. newRepo returns an empty repository.
func CredentialRepositoryContract(t *testing.T, newRepo func(t *testing.T) auth.CredentialRepository) {
	t.Run("insert then get by username", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		cred := NewCredential(t, "alice")

		require.NoError(t, repo.Insert(ctx, cred))

		got, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, got.ID)
		assert.Equal(t, cred.Username, got.Username)
		assert.Equal(t, cred.PasswordHash, got.PasswordHash)
		assert.WithinDuration(t, cred.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("get unknown username returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByUsername(Context(t), "nobody")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("usernames are compared exactly", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		require.NoError(t, repo.Insert(ctx, NewCredential(t, "alice")))

		_, err := repo.GetByUsername(ctx, "Alice")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = repo.GetByUsername(ctx, "alice ")
		assert.ErrorIs(t, err, auth.ErrNotFound)

		require.NoError(t, repo.Insert(ctx, NewCredential(t, "Alice")))
	})

	t.Run("duplicate username returns ErrUsernameTaken", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		first := NewCredential(t, "bob")
		require.NoError(t, repo.Insert(ctx, first))

		err := repo.Insert(ctx, NewCredential(t, "bob"))
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)

		got, err := repo.GetByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID, "original credential must survive")
	})

	t.Run("delete removes credential", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		cred := NewCredential(t, "carol")
		require.NoError(t, repo.Insert(ctx, cred))

		require.NoError(t, repo.Delete(ctx, cred.ID))

		_, err := repo.GetByUsername(ctx, "carol")
		assert.ErrorIs(t, err, auth.ErrNotFound)

		// username is free again
		require.NoError(t, repo.Insert(ctx, NewCredential(t, "carol")))
	})

	t.Run("delete unknown identity is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		id := NewIdentity(t)

		require.NoError(t, repo.Delete(ctx, id))
		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("concurrent inserts of one username admit exactly one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		const workers = 16

		var (
			wg        sync.WaitGroup
			successes atomic.Int32
			taken     atomic.Int32
		)
		start := make(chan struct{})
		for range workers {
			cred := NewCredential(t, "dave")
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := repo.Insert(ctx, cred)
				switch {
				case err == nil:
					successes.Add(1)
				case auth.KindOf(err) == auth.KindUsernameTaken:
					taken.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
		assert.Equal(t, int32(workers-1), taken.Load())
	})
}

// SessionRepositoryContract runs the behaviour every auth.SessionRepository
// must share. newRepo returns an empty repository.
func SessionRepositoryContract(t *testing.T, newRepo func(t *testing.T) auth.SessionRepository) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("replace then get by token hash", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		id := NewIdentity(t)
		session, token := NewSession(t, id, now, time.Hour)

		require.NoError(t, repo.Replace(ctx, session))

		got, err := repo.GetByTokenHash(ctx, auth.HashSessionToken(token))
		require.NoError(t, err)
		assert.Equal(t, id, got.Identity)
		assert.Equal(t, session.TokenHash, got.TokenHash)
		assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Millisecond)
	})

	t.Run("get unknown token hash returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByTokenHash(Context(t), auth.HashSessionToken("missing"))
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("replace invalidates the previous token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		id := NewIdentity(t)
		first, _ := NewSession(t, id, now, time.Hour)
		second, _ := NewSession(t, id, now, time.Hour)

		require.NoError(t, repo.Replace(ctx, first))
		require.NoError(t, repo.Replace(ctx, second))

		_, err := repo.GetByTokenHash(ctx, first.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		got, err := repo.GetByTokenHash(ctx, second.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, id, got.Identity)
	})

	t.Run("sessions of different identities are independent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		a, _ := NewSession(t, NewIdentity(t), now, time.Hour)
		b, _ := NewSession(t, NewIdentity(t), now, time.Hour)
		require.NoError(t, repo.Replace(ctx, a))
		require.NoError(t, repo.Replace(ctx, b))

		require.NoError(t, repo.DeleteByIdentity(ctx, a.Identity))

		_, err := repo.GetByTokenHash(ctx, a.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = repo.GetByTokenHash(ctx, b.TokenHash)
		assert.NoError(t, err)
	})

	t.Run("delete by identity is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		id := NewIdentity(t)

		require.NoError(t, repo.DeleteByIdentity(ctx, id))
		require.NoError(t, repo.DeleteByIdentity(ctx, id))
	})

	t.Run("delete by token hash returns the removed session", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		id := NewIdentity(t)
		session, _ := NewSession(t, id, now, time.Hour)
		require.NoError(t, repo.Replace(ctx, session))

		got, err := repo.DeleteByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, id, got.Identity)

		_, err = repo.DeleteByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = repo.GetByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete by stale token hash keeps the replacing session", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		id := NewIdentity(t)
		old, _ := NewSession(t, id, now, time.Hour)
		current, _ := NewSession(t, id, now, time.Hour)
		require.NoError(t, repo.Replace(ctx, old))
		require.NoError(t, repo.Replace(ctx, current))

		_, err := repo.DeleteByTokenHash(ctx, old.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		got, err := repo.GetByTokenHash(ctx, current.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, id, got.Identity)
	})

	t.Run("sessions without expiry survive purge", func(t *testing.T) {
		repo := newRepo(t)
		ctx := Context(t)
		session, _ := NewSession(t, NewIdentity(t), now, 0)
		require.NoError(t, repo.Replace(ctx, session))

		_, err := repo.DeleteExpired(ctx, now.Add(365*24*time.Hour))
		require.NoError(t, err)

		_, err = repo.GetByTokenHash(ctx, session.TokenHash)
		assert.NoError(t, err)
	})
}

// SessionExpiryContract checks DeleteExpired counting for repositories that
// keep expired records until purged.
func SessionExpiryContract(t *testing.T, newRepo func(t *testing.T) auth.SessionRepository) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	repo := newRepo(t)
	ctx := Context(t)
	short, _ := NewSession(t, NewIdentity(t), now, time.Minute)
	long, _ := NewSession(t, NewIdentity(t), now, time.Hour)
	require.NoError(t, repo.Replace(ctx, short))
	require.NoError(t, repo.Replace(ctx, long))

	n, err := repo.DeleteExpired(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.DeleteExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByTokenHash(ctx, short.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = repo.GetByTokenHash(ctx, long.TokenHash)
	assert.NoError(t, err)
}
