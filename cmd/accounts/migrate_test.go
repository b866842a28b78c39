// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/pkg/errutil"
)

type mockMigrator struct {
	pending     []uint
	version     uint
	dirty       bool
	upErr       error
	upCalled    bool
	downCalled  bool
	forced      *int
	closeCalled bool
}

func (m *mockMigrator) Up() error {
	m.upCalled = true
	return m.upErr
}

func (m *mockMigrator) Down() error {
	m.downCalled = true
	return nil
}

func (m *mockMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *mockMigrator) Force(version int) error {
	m.forced = &version
	return nil
}

func (m *mockMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }

func (m *mockMigrator) Close() error {
	m.closeCalled = true
	return nil
}

func useMigrator(t *testing.T, m *mockMigrator) *string {
	t.Helper()
	var gotURL string
	prev := migratorFactory
	migratorFactory = func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = prev })
	return &gotURL
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "non-numeric returns error", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "empty string returns error", input: "", wantErrCode: "INVALID_VERSION"},
		{name: "whitespace only returns error", input: "   ", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got)
		})
	}
}

func TestMigrateUp(t *testing.T) {
	isolateConfig(t)
	m := &mockMigrator{pending: []uint{1, 2}}
	gotURL := useMigrator(t, m)

	out, err := execute(t, "migrate", "up", "--database-url", "postgres://flag/accounts")
	require.NoError(t, err)

	assert.Equal(t, "postgres://flag/accounts", *gotURL)
	assert.True(t, m.upCalled)
	assert.True(t, m.closeCalled)
	assert.Contains(t, out, "Applied 000001_accounts")
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrate_DefaultsToUp(t *testing.T) {
	isolateConfig(t)
	t.Setenv("DATABASE_URL", "postgres://env/accounts")
	m := &mockMigrator{}
	gotURL := useMigrator(t, m)

	out, err := execute(t, "migrate")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/accounts", *gotURL)
	assert.False(t, m.upCalled, "nothing pending")
	assert.Contains(t, out, "No pending migrations")
}

func TestMigrateUp_Failure(t *testing.T) {
	isolateConfig(t)
	m := &mockMigrator{pending: []uint{3}, upErr: errors.New("syntax error")}
	useMigrator(t, m)

	_, err := execute(t, "migrate", "up", "--database-url", "postgres://flag/accounts")
	require.Error(t, err)
	assert.True(t, m.closeCalled)
}

func TestMigrateDown_RequiresConfirmation(t *testing.T) {
	isolateConfig(t)
	m := &mockMigrator{}
	useMigrator(t, m)

	_, err := execute(t, "migrate", "down", "--database-url", "postgres://flag/accounts")
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
	assert.False(t, m.downCalled)

	out, err := execute(t, "migrate", "down", "--yes", "--database-url", "postgres://flag/accounts")
	require.NoError(t, err)
	assert.True(t, m.downCalled)
	assert.Contains(t, out, "All migrations rolled back")
}

func TestMigrateVersion(t *testing.T) {
	isolateConfig(t)
	useMigrator(t, &mockMigrator{version: 3, dirty: true})

	out, err := execute(t, "migrate", "version", "--database-url", "postgres://flag/accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version 3 (dirty)")
}

func TestMigrateForce(t *testing.T) {
	isolateConfig(t)
	m := &mockMigrator{}
	useMigrator(t, m)

	out, err := execute(t, "migrate", "force", "2", "--database-url", "postgres://flag/accounts")
	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 2, *m.forced)
	assert.Contains(t, out, "Forced schema version to 2")
}

func TestMigrate_DatabaseURLRequired(t *testing.T) {
	isolateConfig(t)
	useMigrator(t, &mockMigrator{})

	_, err := execute(t, "migrate", "version")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "database.url")
}
