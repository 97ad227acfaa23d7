// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package xdg

import (
	"path/filepath"
	"testing"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if got, want := ConfigDir(), "/custom/config/storefront"; got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDir_Fallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/shop")

	if got, want := ConfigDir(), filepath.Join("/home/shop", ".config", "storefront"); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")

	if got, want := ConfigFile(), "/etc/xdg/storefront/config.yaml"; got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}
