// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/pkg/errutil"
)

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error

	forced []int
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }
func (m *mockMigrate) Force(v int) error {
	m.forced = append(m.forced, v)
	return m.forceErr
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/db":   "pgx5://u:p@localhost:5432/db",
		"postgresql://u:p@localhost:5432/db": "pgx5://u:p@localhost:5432/db",
		"pgx5://localhost/db":                "pgx5://localhost/db",
		"mysql://localhost/db":               "mysql://localhost/db",
	}
	for in, want := range tests {
		assert.Equal(t, want, MigrateURL(in), in)
	}
}

func TestMigrator_Up(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Up())
	require.NoError(t, (&Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}).Up(), "ErrNoChange is success")

	err := (&Migrator{m: &mockMigrate{upErr: errors.New("database locked")}}).Up()
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigrator_Down(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Down())
	require.NoError(t, (&Migrator{m: &mockMigrate{downErr: migrate.ErrNoChange}}).Down())

	err := (&Migrator{m: &mockMigrate{downErr: errors.New("constraint violation")}}).Down()
	errutil.AssertErrorCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigrator_Steps(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Steps(1))
	require.NoError(t, (&Migrator{m: &mockMigrate{stepsErr: migrate.ErrNoChange}}).Steps(0))

	err := (&Migrator{m: &mockMigrate{stepsErr: errors.New("invalid step")}}).Steps(-3)
	errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_FAILED")
	errutil.AssertErrorContext(t, err, "steps", -3)
}

func TestMigrator_Version(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.True(t, dirty)
	})

	t.Run("fresh database", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Force(t *testing.T) {
	mock := &mockMigrate{}
	m := &Migrator{m: mock}

	require.NoError(t, m.Force(1))
	assert.Equal(t, []int{1}, mock.forced)

	err := m.Force(-1)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	assert.Equal(t, []int{1}, mock.forced, "negative versions never reach golang-migrate")

	mock.forceErr = errors.New("invalid version")
	err = m.Force(5)
	errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_FAILED")
}

func TestMigrator_Status(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		st, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Status()
		require.NoError(t, err)
		assert.Equal(t, Status{Version: 0, Latest: 2, Pending: []uint{1, 2}}, st)
	})

	t.Run("partially applied", func(t *testing.T) {
		st, err := (&Migrator{m: &mockMigrate{versionVal: 1}}).Status()
		require.NoError(t, err)
		assert.Equal(t, []uint{2}, st.Pending)
	})

	t.Run("up to date", func(t *testing.T) {
		st, err := (&Migrator{m: &mockMigrate{versionVal: 2}}).Status()
		require.NoError(t, err)
		assert.Empty(t, st.Pending)
		assert.Equal(t, uint(2), st.Latest)
	})

	t.Run("version error", func(t *testing.T) {
		_, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Status()
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "migration status")
	})
}

func TestMigrator_Close(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())

	err := (&Migrator{m: &mockMigrate{closeSourceErr: errors.New("source close failed")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "source")

	err = (&Migrator{m: &mockMigrate{closeDbErr: errors.New("db close failed")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "database")

	err = (&Migrator{m: &mockMigrate{
		closeSourceErr: errors.New("source close failed"),
		closeDbErr:     errors.New("db close failed"),
	}}).Close()
	errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
	errutil.AssertErrorContext(t, err, "component", "both")
	assert.Contains(t, err.Error(), "source close failed")
	assert.Contains(t, err.Error(), "db close failed")
}

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 4, "two migrations, each with up and down")

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match pattern NNNNNN_name.(up|down).sql", entry.Name())
	}
}

func TestMigrationVersions(t *testing.T) {
	versions, err := MigrationVersions()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, versions)
}

func TestMigrationName(t *testing.T) {
	assert.Equal(t, "000001_credentials", MigrationName(1))
	assert.Equal(t, "000002_sessions", MigrationName(2))
	assert.Empty(t, MigrationName(99))
}
