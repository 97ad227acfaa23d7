// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// envFiles are the dotenv files read before the environment.
var envFiles = []string{".env"}

// NewRootCmd creates the root command for the storefront CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront - a small shop with accounts and sessions",
		Long: `Storefront serves a public shop, an authenticated back office for
items and categories, and user registration with server-side sessions.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/storefront/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// addConfigFlags registers the flags that override config file values.
// Only flags the user sets take effect; see config.FlagKeys.
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.String("addr", d.Server.Addr, "web listen address")
	fs.String("metrics-addr", d.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.Duration("shutdown-timeout", d.Server.ShutdownTimeout, "graceful shutdown timeout")
	fs.Bool("cookie-secure", d.Server.CookieSecure, "mark the session cookie Secure")
	fs.String("database-url", "", "PostgreSQL URL (DATABASE_URL takes precedence)")
	fs.Duration("session-duration", d.Session.Duration, "session lifetime")
	fs.Int("bcrypt-cost", d.Auth.BcryptCost, "bcrypt cost for new password hashes")
	fs.String("media-backend", d.Media.Backend, "feature image storage (none or s3)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// loadConfig merges defaults, the config file, .env, changed flags and the
// environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(config.Options{ //nolint:wrapcheck // oops error from config
		File:        configFile,
		DefaultFile: xdg.ConfigFile(),
		Flags:       cmd.Flags(),
		EnvFiles:    envFiles,
	})
}
