// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/pkg/errutil"
)

var userRowColumns = []string{"id", "user_name", "password_hash", "email", "login_history", "created_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	user := &auth.User{
		ID:           ulid.Make(),
		UserName:     "alice",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		execErr  error
		wantErr  bool
		wantCode string
		wantDup  bool
	}{
		{name: "inserts"},
		{
			name:     "unique violation maps to duplicate",
			execErr:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_user_name_key"},
			wantErr:  true,
			wantCode: "USER_DUPLICATE",
			wantDup:  true,
		},
		{
			name:     "other failure",
			execErr:  errors.New("connection refused"),
			wantErr:  true,
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			exp := mock.ExpectExec(`INSERT INTO users`).
				WithArgs(user.ID.String(), "alice", user.PasswordHash, pgxmock.AnyArg(), "[]", user.CreatedAt)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := NewUserRepository(mock).Create(context.Background(), user)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantDup, errors.Is(err, auth.ErrDuplicateUser))
		})
	}
}

func TestUserRepository_GetByUserName(t *testing.T) {
	id := ulid.Make()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := []byte(`[{"dateTime":"2026-01-02T03:04:05Z","userAgent":"Firefox"}]`)

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE user_name = \$1`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(id.String(), "alice", "hash", "alice@example.com", history, created))

		user, err := NewUserRepository(mock).GetByUserName(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		require.Len(t, user.LoginHistory, 1)
		assert.Equal(t, "Firefox", user.LoginHistory[0].UserAgent)
		assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), user.LoginHistory[0].DateTime)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).GetByUserName(context.Background(), "ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("corrupt id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow("not-a-ulid", "alice", "hash", "", []byte(`[]`), created))

		_, err := NewUserRepository(mock).GetByUserName(context.Background(), "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("corrupt history", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(id.String(), "alice", "hash", "", []byte(`{}`), created))

		_, err := NewUserRepository(mock).GetByUserName(context.Background(), "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal")
	})
}

func TestUserRepository_AppendLoginEvent(t *testing.T) {
	id := ulid.Make()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	event := auth.LoginEvent{DateTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), UserAgent: "curl"}

	t.Run("appends in one statement", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE users\s+SET login_history = login_history \|\| jsonb_build_array\(\$2::jsonb\)`).
			WithArgs("alice", `{"dateTime":"2026-01-02T03:04:05Z","userAgent":"curl"}`).
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(id.String(), "alice", "hash", "", []byte(`[{"dateTime":"2026-01-02T03:04:05Z","userAgent":"curl"}]`), created))

		user, err := NewUserRepository(mock).AppendLoginEvent(context.Background(), "alice", event)
		require.NoError(t, err)
		require.Len(t, user.LoginHistory, 1)
		assert.Equal(t, event, user.LoginHistory[0])
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE users`).
			WithArgs("ghost", pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).AppendLoginEvent(context.Background(), "ghost", event)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("database failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE users`).
			WithArgs("alice", pgxmock.AnyArg()).
			WillReturnError(errors.New("deadlock detected"))

		_, err := NewUserRepository(mock).AppendLoginEvent(context.Background(), "alice", event)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_APPEND_LOGIN_FAILED")
	})
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	t.Run("updates", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET password_hash = \$2 WHERE user_name = \$1`).
			WithArgs("alice", "new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).UpdatePasswordHash(context.Background(), "alice", "new"))
	})

	t.Run("no rows", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs("ghost", "new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).UpdatePasswordHash(context.Background(), "ghost", "new")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
