// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package xdg provides XDG Base Directory paths for storefront.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "storefront"

// ConfigFileName is the name of the optional configuration file in ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for storefront.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}
