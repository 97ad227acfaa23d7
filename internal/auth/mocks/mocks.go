// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/storefront/storefront/internal/auth"
)

// testingT is what the constructors need from *testing.T.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock whose expectations are asserted on cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks auth.UserRepository.Create.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByUserName mocks auth.UserRepository.GetByUserName.
func (m *MockUserRepository) GetByUserName(ctx context.Context, userName string) (*auth.User, error) {
	args := m.Called(ctx, userName)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// AppendLoginEvent mocks auth.UserRepository.AppendLoginEvent.
func (m *MockUserRepository) AppendLoginEvent(ctx context.Context, userName string, event auth.LoginEvent) (*auth.User, error) {
	args := m.Called(ctx, userName, event)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// UpdatePasswordHash mocks auth.UserRepository.UpdatePasswordHash.
func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, userName, passwordHash string) error {
	args := m.Called(ctx, userName, passwordHash)
	return args.Error(0)
}

// MockSessionRepository is a mock of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock whose expectations are asserted on cleanup.
func NewMockSessionRepository(t testingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks auth.SessionRepository.Create.
func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// GetByTokenHash mocks auth.SessionRepository.GetByTokenHash.
func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

// Touch mocks auth.SessionRepository.Touch.
func (m *MockSessionRepository) Touch(ctx context.Context, id ulid.ULID, lastSeen, expiresAt time.Time) error {
	args := m.Called(ctx, id, lastSeen, expiresAt)
	return args.Error(0)
}

// Delete mocks auth.SessionRepository.Delete.
func (m *MockSessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DeleteExpired mocks auth.SessionRepository.DeleteExpired.
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock whose expectations are asserted on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash mocks auth.PasswordHasher.Hash.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify mocks auth.PasswordHasher.Verify.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade mocks auth.PasswordHasher.NeedsUpgrade.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

var (
	_ auth.UserRepository    = (*MockUserRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
)
