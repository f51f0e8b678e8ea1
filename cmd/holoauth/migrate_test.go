// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/store"
	"github.com/holomush/holoauth/pkg/errutil"
)

type fakeMigrator struct {
	calls  []string
	status store.Status
	err    error
	forced int
	closed bool
}

func (f *fakeMigrator) Up() error       { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error     { f.calls = append(f.calls, "down"); return f.err }
func (f *fakeMigrator) Steps(int) error { f.calls = append(f.calls, "steps"); return f.err }
func (f *fakeMigrator) Close() error    { f.closed = true; return nil }
func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Status() (store.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

func useFakeMigrator(t *testing.T, fake *fakeMigrator) *string {
	t.Helper()
	isolate(t)
	var gotURL string
	orig := newMigrator
	newMigrator = func(url string) (migrator, error) {
		gotURL = url
		return fake, nil
	}
	t.Cleanup(func() { newMigrator = orig })
	return &gotURL
}

func TestMigrateCommands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCalls []string
		wantOut   string
	}{
		{"up", []string{"up"}, []string{"up"}, "Migrations applied"},
		{"down one step", []string{"down"}, []string{"steps"}, "Rollback complete"},
		{"down all", []string{"down", "--all"}, []string{"down"}, "Rollback complete"},
		{"force", []string{"force", "2"}, []string{"force"}, "Version forced to 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeMigrator{}
			useFakeMigrator(t, fake)

			args := append([]string{"migrate", "--postgres-url", "postgres://localhost/holoauth"}, tt.args...)
			output, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, fake.calls)
			assert.Contains(t, output, tt.wantOut)
			assert.True(t, fake.closed)
		})
	}
}

func TestMigrate_DatabaseURLFromEnvironment(t *testing.T) {
	fake := &fakeMigrator{}
	gotURL := useFakeMigrator(t, fake)
	t.Setenv("DATABASE_URL", "postgres://env/holoauth")

	_, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/holoauth", *gotURL)
}

func TestMigrate_RequiresURL(t *testing.T) {
	useFakeMigrator(t, &fakeMigrator{})

	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestMigrate_PropagatesErrors(t *testing.T) {
	fake := &fakeMigrator{err: errors.New("database locked")}
	useFakeMigrator(t, fake)

	_, err := execute(t, "migrate", "--postgres-url", "postgres://x/y", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database locked")
	assert.True(t, fake.closed)
}

func TestMigrateStatus(t *testing.T) {
	fake := &fakeMigrator{status: store.Status{Version: 1, Latest: 2, Pending: []uint{2}}}
	useFakeMigrator(t, fake)

	output, err := execute(t, "migrate", "--postgres-url", "postgres://x/y", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "current: 1 000001_credentials")
	assert.Contains(t, output, "latest:  2")
	assert.Contains(t, output, "  000002_sessions")
}

func TestMigrateVersion(t *testing.T) {
	fake := &fakeMigrator{status: store.Status{Version: 2, Dirty: true, Latest: 2}}
	useFakeMigrator(t, fake)

	output, err := execute(t, "migrate", "--postgres-url", "postgres://x/y", "version")
	require.NoError(t, err)
	assert.Contains(t, output, "2 000002_sessions (dirty)")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{"0", 0, false},
		{" 2 ", 2, false},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"-1", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "current: no migrations applied\nlatest:  2\npending:\n  000001_credentials\n  000002_sessions\n",
		formatStatus(store.Status{Latest: 2, Pending: []uint{1, 2}}))
	assert.Equal(t, "current: 2 000002_sessions\nlatest:  2\npending: none\n",
		formatStatus(store.Status{Version: 2, Latest: 2}))
}
