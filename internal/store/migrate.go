// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store manages the PostgreSQL schema and backend connections used by
// the auth repositories.
package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateIface abstracts golang-migrate so the wrapper can be tested without
// a database.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m migrateIface
}

// Status describes the schema state of a database.
type Status struct {
	Version uint
	Dirty   bool
	Latest  uint
	Pending []uint
}

// NewMigrator creates a Migrator for databaseURL. postgres:// and
// postgresql:// URLs are accepted as well as pgx5://.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, MigrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}

	return &Migrator{m: m}, nil
}

// MigrateURL rewrites a PostgreSQL URL to the pgx5 scheme golang-migrate
// registers its pgx/v5 driver under.
func MigrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, found := strings.CutPrefix(databaseURL, scheme); found {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls back every migration, dropping the auth tables and their data.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Steps applies n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_STEPS_FAILED").With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the applied version. A fresh database reports 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is the
// recovery path for a dirty database.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Status reports the current and latest versions and what Up would apply.
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, oops.With("operation", "migration status").Wrap(err)
	}

	all, err := MigrationVersions()
	if err != nil {
		return Status{}, oops.With("operation", "migration status").Wrap(err)
	}

	st := Status{Version: version, Dirty: dirty}
	for _, v := range all {
		if v > version {
			st.Pending = append(st.Pending, v)
		}
	}
	if len(all) > 0 {
		st.Latest = all[len(all)-1]
	}
	return st, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Wrap(errors.Join(srcErr, dbErr))
	case srcErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// MigrationVersions lists the embedded migration versions in ascending order.
func MigrationVersions() ([]uint, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").Wrap(err)
	}

	versions := make([]uint, 0, len(names))
	for _, name := range names {
		var v uint
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, "migrations/"), "%06d_", &v); err != nil {
			return nil, oops.Code("MIGRATION_LIST_FAILED").
				With("filename", name).
				Wrap(err)
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return slices.Compact(versions), nil
}

// MigrationName returns the NNNNNN_name form of version, or "" if no such
// migration is embedded.
func MigrationName(version uint) string {
	matches, _ := fs.Glob(migrationsFS, fmt.Sprintf("migrations/%06d_*.up.sql", version)) //nolint:errcheck // pattern is constant-shaped
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(matches[0], "migrations/"), ".up.sql")
}
