// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RegisterRequest carries the registration form fields.
type RegisterRequest struct {
	UserName        string
	Password        string
	PasswordConfirm string
	Email           string
}

// Service provides registration, login and session creation.
// It holds no per-call state; all state lives in the repositories.
type Service struct {
	users           UserRepository
	sessions        SessionRepository
	hasher          PasswordHasher
	dummyHash       string
	logger          *slog.Logger
	now             func() time.Time
	sessionDuration time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source used for login events and session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSessionDuration sets the lifetime of sessions created by StartSession.
func WithSessionDuration(d time.Duration) Option {
	return func(s *Service) { s.sessionDuration = d }
}

// NewService creates a new Service.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	s := &Service{
		users:           users,
		sessions:        sessions,
		hasher:          hasher,
		logger:          slog.Default(),
		now:             time.Now,
		sessionDuration: DefaultSessionDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	if s.sessionDuration <= 0 {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session duration must be positive")
	}

	// Verified when the user does not exist, so a miss costs the same work
	// as a wrong password at the configured cost.
	dummy, err := hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	s.dummyHash = dummy
	return s, nil
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if req.Password != req.PasswordConfirm {
		return oops.Code("AUTH_PASSWORD_MISMATCH").
			With("user_name", req.UserName).
			Wrap(ErrPasswordMismatch)
	}
	if err := ValidateUserName(req.UserName); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return err
		}
		return oops.Code("AUTH_REGISTRATION_FAILED").
			With("operation", "hash password").
			With("user_name", req.UserName).
			Wrap(fmt.Errorf("%w: %w", ErrRegistrationFailed, err))
	}

	user, err := NewUser(req.UserName, hash, req.Email)
	if err != nil {
		return err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return oops.Code("AUTH_USERNAME_TAKEN").
				With("user_name", req.UserName).
				Wrap(ErrUserNameTaken)
		}
		return oops.Code("AUTH_REGISTRATION_FAILED").
			With("operation", "create user").
			With("user_name", req.UserName).
			Wrap(fmt.Errorf("%w: %w", ErrRegistrationFailed, err))
	}

	s.logger.InfoContext(ctx, "user registered", "user_name", user.UserName, "user_id", user.ID.String())
	return nil
}

// Login authenticates userName/password and appends a LoginEvent to the
// user's history. It returns the user as stored after the append.
func (s *Service) Login(ctx context.Context, userName, password, userAgent string) (*User, error) {
	user, lookupErr := s.users.GetByUserName(ctx, userName)

	var targetHash string
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by user name").
				Wrap(lookupErr)
		}
		targetHash = s.dummyHash
	} else {
		targetHash = user.PasswordHash
	}

	// Always verify so a miss and a mismatch take the same time.
	valid, verifyErr := s.hasher.Verify(password, targetHash)

	if lookupErr != nil {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(ErrUserNotFound)
	}
	if verifyErr != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_name", userName).
			Wrap(verifyErr)
	}
	if !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("user_name", userName).
			Wrap(ErrInvalidCredentials)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user.UserName, password)
	}

	event := LoginEvent{DateTime: s.now().UTC(), UserAgent: userAgent}
	updated, err := s.users.AppendLoginEvent(ctx, user.UserName, event)
	if err != nil {
		return nil, oops.Code("AUTH_HISTORY_UPDATE_FAILED").
			With("user_name", user.UserName).
			Wrap(fmt.Errorf("%w: %w", ErrHistoryUpdateFailed, err))
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_name", updated.UserName,
		"logins", len(updated.LoginHistory))
	return updated, nil
}

// upgradeHash rehashes with the current algorithm. Failures are logged and
// do not affect the login.
func (s *Service) upgradeHash(ctx context.Context, userName, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_name", userName, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, userName, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade not stored", "user_name", userName, "error", err)
	}
}

// StartSession creates a session for an authenticated user.
// Returns the session and the plaintext token to hand to the client.
func (s *Service) StartSession(ctx context.Context, user *User, userAgent, ipAddress string) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user, tokenHash, userAgent, ipAddress, s.now().Add(s.sessionDuration))
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_name", user.UserName).
			Wrap(err)
	}

	return session, token, nil
}
