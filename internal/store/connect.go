// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connect retry defaults.
const (
	DefaultConnectAttempts = 5
	connectBaseDelay       = 200 * time.Millisecond
	connectMaxDelay        = 5 * time.Second
)

// RetryPolicy controls how long startup waits for a backend.
type RetryPolicy struct {
	Attempts  uint64
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy returns a policy of DefaultConnectAttempts exponential
// retries starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  DefaultConnectAttempts,
		BaseDelay: connectBaseDelay,
		MaxDelay:  connectMaxDelay,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = connectBaseDelay
	}
	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(p.Attempts, b)
}

// WaitReady calls ping until it succeeds, the policy is exhausted or ctx ends.
func WaitReady(ctx context.Context, name string, policy RetryPolicy, logger *slog.Logger, ping func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			logger.WarnContext(ctx, "backend not ready",
				"backend", name,
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("BACKEND_UNAVAILABLE").
			With("backend", name).
			With("attempts", attempt).
			Wrap(err)
	}

	logger.DebugContext(ctx, "backend ready", "backend", name, "attempts", attempt)
	return nil
}

// ConnectPostgres opens a pool for databaseURL and waits until it answers.
func ConnectPostgres(ctx context.Context, databaseURL string, policy RetryPolicy, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONFIG_INVALID").Wrap(err)
	}

	if err := WaitReady(ctx, "postgres", policy, logger, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ConnectRedis creates a client for addr and waits until it answers PING.
func ConnectRedis(ctx context.Context, opts *redis.Options, policy RetryPolicy, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(opts)

	err := WaitReady(ctx, "redis", policy, logger, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
