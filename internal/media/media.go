// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package media stores item feature images in object storage.
package media

import (
	"context"
	"io"
)

// Uploader stores an uploaded file and returns its public URL.
type Uploader interface {
	// Upload stores body under a fresh key. It returns "" when there is
	// nothing to store (no file name and no content).
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// Disabled is an Uploader that stores nothing. Items keep an empty image.
type Disabled struct{}

// Upload discards body and returns "".
func (Disabled) Upload(context.Context, string, string, io.Reader) (string, error) {
	return "", nil
}

var _ Uploader = Disabled{}
