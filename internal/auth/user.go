// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Field length limits, in characters.
const (
	MaxUserNameLength = 128
	MaxEmailLength    = 254
)

// User represents a registered account.
type User struct {
	ID           ulid.ULID
	UserName     string
	PasswordHash string
	Email        string
	LoginHistory []LoginEvent
	CreatedAt    time.Time
}

// LoginEvent records one successful authentication.
type LoginEvent struct {
	DateTime  time.Time `json:"dateTime"`
	UserAgent string    `json:"userAgent"`
}

// NewUser creates a validated User with an empty login history.
func NewUser(userName, passwordHash, email string) (*User, error) {
	if err := ValidateUserName(userName); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	email = strings.TrimSpace(email)
	if len(email) > MaxEmailLength {
		return nil, oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Wrap(&ValidationError{Field: "email", Reason: "email is too long"})
	}
	return &User{
		ID:           ulid.Make(),
		UserName:     userName,
		PasswordHash: passwordHash,
		Email:        email,
		LoginHistory: []LoginEvent{},
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUserName checks that a user name is present and at most
// MaxUserNameLength characters. Any other string is a valid name.
func ValidateUserName(userName string) error {
	if userName == "" {
		return oops.Code("AUTH_INVALID_USERNAME").
			Wrap(&ValidationError{Field: "userName", Reason: "User Name is required"})
	}
	if utf8.RuneCountInString(userName) > MaxUserNameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUserNameLength).
			Wrap(&ValidationError{Field: "userName", Reason: "User Name must be at most 128 characters"})
	}
	return nil
}

// UserRepository is the credential store.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrDuplicateUser
	// if the user name is taken; the existing record is not modified.
	Create(ctx context.Context, user *User) error

	// GetByUserName retrieves a user by exact user name.
	// Returns an error wrapping ErrNotFound if absent.
	GetByUserName(ctx context.Context, userName string) (*User, error)

	// AppendLoginEvent atomically appends event to the user's login history
	// and returns the user as stored after the append.
	// Returns an error wrapping ErrNotFound if absent.
	AppendLoginEvent(ctx context.Context, userName string, event LoginEvent) (*User, error)

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, userName, passwordHash string) error
}
