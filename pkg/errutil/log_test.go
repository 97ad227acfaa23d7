// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("USER_GET_FAILED").
		With("user_name", "alice").
		Errorf("connection reset")

	errutil.LogError(logger, "login failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "login failed", logEntry["msg"])
	assert.Equal(t, "USER_GET_FAILED", logEntry["code"])
	assert.Equal(t, map[string]any{"user_name": "alice"}, logEntry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.NotContains(t, logEntry, "code")
}

func TestLogErrorContext_NilLoggerUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	errutil.LogErrorContext(context.Background(), nil, "sweep failed", oops.Code("SESSION_SWEEP_FAILED").Errorf("boom"))

	assert.Contains(t, buf.String(), "SESSION_SWEEP_FAILED")
}

func TestCode(t *testing.T) {
	inner := oops.Code("USER_NOT_FOUND").Errorf("missing")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain error", err: errors.New("plain"), want: ""},
		{name: "nil", err: nil, want: ""},
		{name: "oops code", err: inner, want: "USER_NOT_FOUND"},
		{name: "innermost code wins", err: oops.Code("AUTH_LOGIN_FAILED").Wrap(inner), want: "USER_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.Code(tt.err))
		})
	}
}
