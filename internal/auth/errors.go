// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"errors"
)

// Store-level sentinels. Repository implementations wrap these so callers
// can match with errors.Is regardless of the backing store.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser is returned by UserRepository.Create when the user name
	// is already registered. The existing record is left untouched.
	ErrDuplicateUser = errors.New("user name already exists")
)

// Service-level sentinels, one per Kind.
var (
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrUserNameTaken       = errors.New("user name already taken")
	ErrRegistrationFailed  = errors.New("error creating the user")
	ErrUserNotFound        = errors.New("unable to find user")
	ErrInvalidCredentials  = errors.New("incorrect password")
	ErrHistoryUpdateFailed = errors.New("error updating login history")
	ErrInvalidInput        = errors.New("invalid input")
)

// Kind classifies an authentication failure.
type Kind string

// Failure kinds returned by KindOf.
const (
	KindUnknown             Kind = "Unknown"
	KindPasswordMismatch    Kind = "PasswordMismatch"
	KindUserNameTaken       Kind = "UserNameTaken"
	KindRegistrationFailed  Kind = "RegistrationFailed"
	KindUserNotFound        Kind = "UserNotFound"
	KindInvalidCredentials  Kind = "InvalidCredentials"
	KindHistoryUpdateFailed Kind = "HistoryUpdateFailed"
	KindInvalidInput        Kind = "InvalidInput"
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindPasswordMismatch, ErrPasswordMismatch},
	{KindUserNameTaken, ErrUserNameTaken},
	{KindRegistrationFailed, ErrRegistrationFailed},
	{KindUserNotFound, ErrUserNotFound},
	{KindInvalidCredentials, ErrInvalidCredentials},
	{KindHistoryUpdateFailed, ErrHistoryUpdateFailed},
	{KindInvalidInput, ErrInvalidInput},
}

// KindOf reports the Kind of err. Returns KindUnknown for nil or for errors
// that did not originate from Service.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}

// Message returns the user-facing text for err.
// UserNotFound and InvalidCredentials share one message so the login form
// does not disclose which user names exist.
func Message(err error) string {
	switch KindOf(err) {
	case KindPasswordMismatch:
		return "Passwords do not match"
	case KindUserNameTaken:
		return "User Name already taken"
	case KindRegistrationFailed:
		return "Error creating the user"
	case KindUserNotFound, KindInvalidCredentials:
		return "Invalid user name or password"
	case KindHistoryUpdateFailed:
		return "Unable to complete login, please try again"
	case KindInvalidInput:
		return validationMessage(err)
	default:
		return "Something went wrong, please try again"
	}
}

// validationMessage extracts the innermost validation text so the form can
// tell the user what to fix.
func validationMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return "Invalid input"
}

// ValidationError describes a rejected field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Is lets ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
