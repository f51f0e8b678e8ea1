// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/holoauth/internal/auth"
)

// TestingT is the subset of testing.TB the mock constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

func register[M interface {
	Test(mock.TestingT)
	AssertExpectations(mock.TestingT) bool
}](t TestingT, m M) M {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher that asserts its
// expectations when the test ends.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	return register(t, &MockPasswordHasher{})
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	ret := m.Called(hash)
	return ret.Bool(0)
}

// MockCredentialRepository is a mock auth.CredentialRepository.
type MockCredentialRepository struct {
	mock.Mock
}

// NewMockCredentialRepository creates a MockCredentialRepository that
// asserts its expectations when the test ends.
func NewMockCredentialRepository(t TestingT) *MockCredentialRepository {
	return register(t, &MockCredentialRepository{})
}

// Insert provides a mock function.
func (m *MockCredentialRepository) Insert(ctx context.Context, cred *auth.Credential) error {
	ret := m.Called(ctx, cred)
	return ret.Error(0)
}

// GetByUsername provides a mock function.
func (m *MockCredentialRepository) GetByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	ret := m.Called(ctx, username)
	cred, _ := ret.Get(0).(*auth.Credential)
	return cred, ret.Error(1)
}

// Delete provides a mock function.
func (m *MockCredentialRepository) Delete(ctx context.Context, id auth.Identity) error {
	ret := m.Called(ctx, id)
	return ret.Error(0)
}

// MockSessionRepository is a mock auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a MockSessionRepository that asserts its
// expectations when the test ends.
func NewMockSessionRepository(t TestingT) *MockSessionRepository {
	return register(t, &MockSessionRepository{})
}

// Replace provides a mock function.
func (m *MockSessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	ret := m.Called(ctx, session)
	return ret.Error(0)
}

// GetByTokenHash provides a mock function.
func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	session, _ := ret.Get(0).(*auth.Session)
	return session, ret.Error(1)
}

// DeleteByIdentity provides a mock function.
func (m *MockSessionRepository) DeleteByIdentity(ctx context.Context, identity auth.Identity) error {
	ret := m.Called(ctx, identity)
	return ret.Error(0)
}

// DeleteByTokenHash provides a mock function.
func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	session, _ := ret.Get(0).(*auth.Session)
	return session, ret.Error(1)
}

// DeleteExpired provides a mock function.
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockCredentialStore is a mock auth.CredentialStore.
type MockCredentialStore struct {
	mock.Mock
}

// NewMockCredentialStore creates a MockCredentialStore that asserts its
// expectations when the test ends.
func NewMockCredentialStore(t TestingT) *MockCredentialStore {
	return register(t, &MockCredentialStore{})
}

// Create provides a mock function.
func (m *MockCredentialStore) Create(ctx context.Context, username, password string) error {
	ret := m.Called(ctx, username, password)
	return ret.Error(0)
}

// Authenticate provides a mock function.
func (m *MockCredentialStore) Authenticate(ctx context.Context, username, password string) (auth.Identity, error) {
	ret := m.Called(ctx, username, password)
	id, _ := ret.Get(0).(auth.Identity)
	return id, ret.Error(1)
}

// Delete provides a mock function.
func (m *MockCredentialStore) Delete(ctx context.Context, id auth.Identity) error {
	ret := m.Called(ctx, id)
	return ret.Error(0)
}

// MockSessionStore is a mock auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore that asserts its
// expectations when the test ends.
func NewMockSessionStore(t TestingT) *MockSessionStore {
	return register(t, &MockSessionStore{})
}

// Create provides a mock function.
func (m *MockSessionStore) Create(ctx context.Context, id auth.Identity) (string, error) {
	ret := m.Called(ctx, id)
	return ret.String(0), ret.Error(1)
}

// Delete provides a mock function.
func (m *MockSessionStore) Delete(ctx context.Context, id auth.Identity) error {
	ret := m.Called(ctx, id)
	return ret.Error(0)
}

// Resolve provides a mock function.
func (m *MockSessionStore) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	ret := m.Called(ctx, token)
	id, _ := ret.Get(0).(auth.Identity)
	return id, ret.Error(1)
}

// Revoke provides a mock function.
func (m *MockSessionStore) Revoke(ctx context.Context, token string) (auth.Identity, error) {
	ret := m.Called(ctx, token)
	id, _ := ret.Get(0).(auth.Identity)
	return id, ret.Error(1)
}

var (
	_ auth.PasswordHasher       = (*MockPasswordHasher)(nil)
	_ auth.CredentialRepository = (*MockCredentialRepository)(nil)
	_ auth.SessionRepository    = (*MockSessionRepository)(nil)
	_ auth.CredentialStore      = (*MockCredentialStore)(nil)
	_ auth.SessionStore         = (*MockSessionStore)(nil)
)
