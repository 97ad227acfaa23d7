// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package memory provides in-process implementations of the auth repositories.
// They back `storefront serve --store memory` and are imported directly by
// the auth and web package tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*auth.User)}
}

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.UserName]; exists {
		return oops.Code("USER_DUPLICATE").
			With("user_name", user.UserName).
			Wrap(auth.ErrDuplicateUser)
	}
	r.users[user.UserName] = cloneUser(user)
	return nil
}

// GetByUserName retrieves a user by user name.
func (r *UserRepository) GetByUserName(_ context.Context, userName string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userName]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(auth.ErrNotFound)
	}
	return cloneUser(user), nil
}

// AppendLoginEvent appends under the write lock, so concurrent logins for
// the same user never lose events.
func (r *UserRepository) AppendLoginEvent(_ context.Context, userName string, event auth.LoginEvent) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userName]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(auth.ErrNotFound)
	}
	user.LoginHistory = append(user.LoginHistory, event)
	return cloneUser(user), nil
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepository) UpdatePasswordHash(_ context.Context, userName, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userName]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	return nil
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	c.LoginHistory = make([]auth.LoginEvent, len(u.LoginHistory))
	copy(c.LoginHistory, u.LoginHistory)
	return &c
}

// SessionRepository implements auth.SessionRepository in memory.
type SessionRepository struct {
	mu       sync.RWMutex
	byID     map[ulid.ULID]*auth.Session
	byHashID map[string]ulid.ULID
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byID:     make(map[ulid.ULID]*auth.Session),
		byHashID: make(map[string]ulid.ULID),
	}
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHashID[session.TokenHash]; exists {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("token hash already in use")
	}
	r.byID[session.ID] = cloneSession(session)
	r.byHashID[session.TokenHash] = session.ID
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHashID[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return cloneSession(r.byID[id]), nil
}

// Touch updates LastSeenAt and ExpiresAt.
func (r *SessionRepository) Touch(_ context.Context, id ulid.ULID, lastSeen, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	s.LastSeenAt = lastSeen
	s.ExpiresAt = expiresAt
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.byHashID, s.TokenHash)
	delete(r.byID, id)
	return nil
}

// DeleteExpired removes sessions expired at now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.byID {
		if s.IsExpiredAt(now) {
			delete(r.byHashID, s.TokenHash)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func cloneSession(s *auth.Session) *auth.Session {
	c := *s
	c.LoginHistory = make([]auth.LoginEvent, len(s.LoginHistory))
	copy(c.LoginHistory, s.LoginHistory)
	return &c
}

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
)
