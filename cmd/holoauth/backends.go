// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	authbolt "github.com/holomush/holoauth/internal/auth/bbolt"
	"github.com/holomush/holoauth/internal/auth/memory"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/auth/redisstore"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/store"
	"github.com/holomush/holoauth/internal/xdg"
)

// backends holds the opened repositories and the connections behind them.
type backends struct {
	Credentials auth.CredentialRepository
	Sessions    auth.SessionRepository

	pool  *pgxpool.Pool
	redis *redis.Client
	bolt  *authbolt.DB
}

// openBackends connects every backend cfg selects. Connections shared by both
// stores are opened once.
func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	policy := cfg.Storage.RetryPolicy()

	if cfg.Uses(config.BackendPostgres) {
		if cfg.Storage.AutoMigrate {
			if err := migrateUp(cfg.Storage.PostgresURL, logger); err != nil {
				return nil, err
			}
		}
		b.pool, err = store.ConnectPostgres(ctx, cfg.Storage.PostgresURL, policy, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
	}

	if cfg.Uses(config.BackendBbolt) {
		if err := xdg.EnsureDir(filepath.Dir(cfg.Storage.BboltPath)); err != nil {
			return nil, err
		}
		b.bolt, err = authbolt.Open(cfg.Storage.BboltPath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened bbolt database", "path", b.bolt.Path())
	}

	if cfg.Uses(config.BackendRedis) {
		b.redis, err = store.ConnectRedis(ctx, &redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		}, policy, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis", "addr", cfg.Storage.RedisAddr)
	}

	switch cfg.Storage.Credentials {
	case config.BackendMemory:
		b.Credentials = memory.NewCredentialRepository()
	case config.BackendBbolt:
		b.Credentials = b.bolt.Credentials()
	case config.BackendPostgres:
		b.Credentials = postgres.NewCredentialRepository(b.pool)
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("field", "storage.credentials").
			Errorf("unsupported credential backend %q", cfg.Storage.Credentials)
	}

	switch cfg.Storage.Sessions {
	case config.BackendMemory:
		b.Sessions = memory.NewSessionRepository()
	case config.BackendBbolt:
		b.Sessions = b.bolt.Sessions()
	case config.BackendPostgres:
		b.Sessions = postgres.NewSessionRepository(b.pool)
	case config.BackendRedis:
		b.Sessions = redisstore.NewSessionRepository(b.redis, redisstore.WithKeyPrefix(cfg.Storage.RedisPrefix))
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("field", "storage.sessions").
			Errorf("unsupported session backend %q", cfg.Storage.Sessions)
	}

	return b, nil
}

// Ready pings every networked backend.
func (b *backends) Ready(ctx context.Context) bool {
	if b.pool != nil && b.pool.Ping(ctx) != nil {
		return false
	}
	if b.redis != nil && b.redis.Ping(ctx).Err() != nil {
		return false
	}
	return true
}

// Close releases every opened connection.
func (b *backends) Close() error {
	var errs []error
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.bolt != nil {
		if err := b.bolt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return oops.Code("BACKEND_CLOSE_FAILED").Wrap(errors.Join(errs...))
	}
	return nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return err
	}
	logger.Info("database migrations applied")
	return nil
}
