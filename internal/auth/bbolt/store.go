// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package bbolt provides file-backed auth repositories on a single BoltDB
// database. Every mutation runs in one read-write transaction, so the primary
// and secondary indices of a store are always updated together.
package bbolt

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.etcd.io/bbolt"
)

// Bucket names.
var (
	credentialsBucket = []byte("credentials") // identity -> credential record
	usernamesBucket   = []byte("usernames")   // username -> identity
	sessionsBucket    = []byte("sessions")    // identity -> session record
	tokensBucket      = []byte("tokens")      // token hash -> identity
)

// openTimeout bounds how long Open waits for the file lock.
const openTimeout = time.Second

// DB owns a BoltDB database holding credential and session buckets.
type DB struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.Code("BBOLT_INVALID_PATH").Errorf("database path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, oops.Code("BBOLT_OPEN_FAILED").
			With("path", cleanPath).
			Wrap(err)
	}

	if err := ensureBuckets(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func ensureBuckets(db *bbolt.DB) error {
	return db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{credentialsBucket, usernamesBucket, sessionsBucket, tokensBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return oops.Code("BBOLT_BUCKET_FAILED").
					With("bucket", string(name)).
					Wrap(err)
			}
		}
		return nil
	})
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.db.Path()
}

// Close releases the database file.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	if err := d.db.Close(); err != nil {
		return oops.Code("BBOLT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Credentials returns a credential repository over d.
func (d *DB) Credentials() *CredentialRepository {
	return &CredentialRepository{db: d.db}
}

// Sessions returns a session repository over d.
func (d *DB) Sessions() *SessionRepository {
	return &SessionRepository{db: d.db}
}

func update(ctx context.Context, db *bbolt.DB, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("BBOLT_CANCELLED").Wrap(err)
	}
	return db.Update(fn)
}

func view(ctx context.Context, db *bbolt.DB, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("BBOLT_CANCELLED").Wrap(err)
	}
	return db.View(fn)
}
