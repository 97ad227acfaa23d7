// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Decision is the outcome of a session authorization check.
type Decision int

// Authorization decisions.
const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Guard sentinels.
var (
	// ErrNoSession means the request carries no recognised session.
	ErrNoSession = errors.New("no session")

	// ErrSessionExpired means the session existed but its lifetime elapsed.
	ErrSessionExpired = errors.New("session expired")
)

// Authorize decides whether session grants access at now.
// Allow iff the session exists, names a principal, and has not expired.
func Authorize(session *Session, now time.Time) Decision {
	if session == nil || session.UserName == "" {
		return Deny
	}
	if session.IsExpiredAt(now) {
		return Deny
	}
	return Allow
}

// Guard resolves opaque session tokens to sessions and gates access.
// It never touches the credential store.
type Guard struct {
	sessions SessionRepository
	active   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithActiveDuration sets the sliding window applied on each authorized request.
// Zero disables sliding expiry.
func WithActiveDuration(d time.Duration) GuardOption {
	return func(g *Guard) { g.active = d }
}

// WithGuardClock overrides the time source.
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithGuardLogger sets the logger.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard creates a Guard backed by sessions.
func NewGuard(sessions SessionRepository, opts ...GuardOption) (*Guard, error) {
	if sessions == nil {
		return nil, oops.Code("GUARD_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	g := &Guard{
		sessions: sessions,
		active:   DefaultActiveDuration,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		return nil, oops.Code("GUARD_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	return g, nil
}

// Authorize resolves token and returns the session if access is allowed.
// Denials wrap ErrNoSession or ErrSessionExpired.
func (g *Guard) Authorize(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrNoSession)
	}

	session, err := g.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrNoSession)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := g.now()
	if Authorize(session, now) == Deny {
		if delErr := g.sessions.Delete(ctx, session.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			g.logger.WarnContext(ctx, "failed to delete expired session",
				"session_id", session.ID.String(),
				"error", delErr)
		}
		return nil, oops.Code("SESSION_EXPIRED").
			With("user_name", session.UserName).
			Wrap(ErrSessionExpired)
	}

	session.Extend(now, g.active)
	session.LastSeenAt = now
	// Best effort: a failed touch only costs the sliding extension.
	if err := g.sessions.Touch(ctx, session.ID, now, session.ExpiresAt); err != nil {
		g.logger.WarnContext(ctx, "failed to touch session",
			"session_id", session.ID.String(),
			"error", err)
	}

	return session, nil
}

// Revoke invalidates the session behind token immediately. Unknown or empty
// tokens are not an error: the caller is logged out either way.
func (g *Guard) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	session, err := g.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	if err := g.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// Sweep removes expired sessions and returns how many were deleted.
func (g *Guard) Sweep(ctx context.Context) (int64, error) {
	n, err := g.sessions.DeleteExpired(ctx, g.now())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}
