// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token and lifetime defaults.
const (
	SessionTokenBytes = 32 // 32 bytes = 64 hex chars

	// DefaultSessionDuration is the lifetime of a fresh session.
	DefaultSessionDuration = 2 * time.Minute

	// DefaultActiveDuration is the sliding window: a request arriving with less
	// than this much lifetime left pushes expiry to now+DefaultActiveDuration.
	DefaultActiveDuration = time.Minute
)

// Session is the server-side record of an authenticated principal.
// The client only ever holds the plaintext token; TokenHash is stored.
type Session struct {
	ID           ulid.ULID
	TokenHash    string
	UserName     string
	Email        string
	LoginHistory []LoginEvent // snapshot taken at login
	UserAgent    string
	IPAddress    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	LastSeenAt   time.Time
}

// NewSession creates a validated Session for user, snapshotting its email and
// login history. UserAgent and IPAddress are optional and may be empty.
func NewSession(user *User, tokenHash, userAgent, ipAddress string, expiresAt time.Time) (*Session, error) {
	if user == nil || user.UserName == "" {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("session requires an authenticated user")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	history := make([]LoginEvent, len(user.LoginHistory))
	copy(history, user.LoginHistory)

	now := time.Now()
	return &Session{
		ID:           ulid.Make(),
		TokenHash:    tokenHash,
		UserName:     user.UserName,
		Email:        user.Email,
		LoginHistory: history,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		LastSeenAt:   now,
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Extend applies the sliding window at time now. It returns true when
// ExpiresAt moved, i.e. less than active remained.
func (s *Session) Extend(now time.Time, active time.Duration) bool {
	if active <= 0 || s.ExpiresAt.Sub(now) >= active {
		return false
	}
	s.ExpiresAt = now.Add(active)
	return true
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Touch records activity and the (possibly extended) expiry.
	Touch(ctx context.Context, id ulid.ULID, lastSeen, expiresAt time.Time) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes all sessions expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
