// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/store"
)

const userColumns = `id, user_name, password_hash, email, login_history, created_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. A unique violation on user_name maps to
// auth.ErrDuplicateUser; the existing row is never overwritten.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	history := user.LoginHistory
	if history == nil {
		history = []auth.LoginEvent{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "marshal login history").
			Wrap(err)
	}

	email := pgtype.Text{String: user.Email, Valid: user.Email != ""}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, user_name, password_hash, email, login_history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		user.ID.String(),
		user.UserName,
		user.PasswordHash,
		email,
		string(historyJSON),
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE").
				With("user_name", user.UserName).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrDuplicateUser)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_name", user.UserName).
			Wrap(err)
	}
	return nil
}

// GetByUserName retrieves a user by exact user name.
func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_name = $1
	`, userName)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by user name").
			With("user_name", userName).
			Wrap(err)
	}
	return user, nil
}

// AppendLoginEvent appends in a single UPDATE so concurrent logins for the
// same user serialise on the row lock and none are lost.
func (r *UserRepository) AppendLoginEvent(ctx context.Context, userName string, event auth.LoginEvent) (*auth.User, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, oops.Code("USER_APPEND_LOGIN_FAILED").
			With("operation", "marshal login event").
			Wrap(err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET login_history = login_history || jsonb_build_array($2::jsonb)
		WHERE user_name = $1
		RETURNING `+userColumns,
		userName, string(eventJSON))

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_APPEND_LOGIN_FAILED").
			With("operation", "append login event").
			With("user_name", userName).
			Wrap(err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userName, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE user_name = $1
	`, userName, passwordHash)
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_name", userName).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("user_name", userName).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		userName     string
		passwordHash string
		email        pgtype.Text
		historyJSON  []byte
		createdAt    time.Time
	)

	err := row.Scan(&idStr, &userName, &passwordHash, &email, &historyJSON, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	history := []auth.LoginEvent{}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &history); err != nil {
			return nil, oops.Code("USER_INVALID_HISTORY").
				With("user_name", userName).
				Wrap(err)
		}
	}

	user := &auth.User{
		ID:           id,
		UserName:     userName,
		PasswordHash: passwordHash,
		LoginHistory: history,
		CreatedAt:    createdAt,
	}
	if email.Valid {
		user.Email = email.String
	}
	return user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
