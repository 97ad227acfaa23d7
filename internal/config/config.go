// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package config loads storefront configuration from an optional YAML file,
// command-line flags and the environment.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/storefront/storefront/internal/auth"
)

// Config is the complete storefront configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server,omitempty" yaml:"server"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty" yaml:"database"`
	Session  SessionConfig  `koanf:"session" json:"session,omitempty" yaml:"session"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	Media    MediaConfig    `koanf:"media" json:"media,omitempty" yaml:"media"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty" yaml:"log"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr            string        `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=web listen address"`
	MetricsAddr     string        `koanf:"metrics_addr" json:"metrics_addr,omitempty" yaml:"metrics_addr" jsonschema:"description=metrics and health listen address (empty disables)"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout"`
	CookieSecure    bool          `koanf:"cookie_secure" json:"cookie_secure,omitempty" yaml:"cookie_secure" jsonschema:"description=mark the session cookie Secure (HTTPS only)"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string        `koanf:"url" json:"url,omitempty" yaml:"url"`
	ConnectAttempts int           `koanf:"connect_attempts" json:"connect_attempts,omitempty" yaml:"connect_attempts" jsonschema:"minimum=1"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff" json:"connect_backoff,omitempty" yaml:"connect_backoff"`
}

// SessionConfig configures server-side sessions.
type SessionConfig struct {
	CookieName      string        `koanf:"cookie_name" json:"cookie_name,omitempty" yaml:"cookie_name"`
	Duration        time.Duration `koanf:"duration" json:"duration,omitempty" yaml:"duration"`
	ActiveDuration  time.Duration `koanf:"active_duration" json:"active_duration,omitempty" yaml:"active_duration"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" json:"cleanup_interval,omitempty" yaml:"cleanup_interval"`
}

// AuthConfig configures password hashing, login throttling and route gating.
type AuthConfig struct {
	BcryptCost     int      `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" yaml:"bcrypt_cost" jsonschema:"minimum=4,maximum=31"`
	LoginRate      float64  `koanf:"login_rate" json:"login_rate,omitempty" yaml:"login_rate" jsonschema:"description=sustained login attempts per second per client (0 disables)"`
	LoginBurst     int      `koanf:"login_burst" json:"login_burst,omitempty" yaml:"login_burst"`
	ProtectedPaths []string `koanf:"protected_paths" json:"protected_paths,omitempty" yaml:"protected_paths" jsonschema:"description=glob patterns of extra paths that require a session; admin routes always do"`
}

// MediaConfig configures item image uploads.
type MediaConfig struct {
	Backend       string `koanf:"backend" json:"backend,omitempty" yaml:"backend" jsonschema:"enum=none,enum=s3"`
	Bucket        string `koanf:"bucket" json:"bucket,omitempty" yaml:"bucket"`
	Region        string `koanf:"region" json:"region,omitempty" yaml:"region"`
	Endpoint      string `koanf:"endpoint" json:"endpoint,omitempty" yaml:"endpoint"`
	AccessKey     string `koanf:"access_key" json:"access_key,omitempty" yaml:"access_key"`
	SecretKey     string `koanf:"secret_key" json:"secret_key,omitempty" yaml:"secret_key"`
	PublicBaseURL string `koanf:"public_base_url" json:"public_base_url,omitempty" yaml:"public_base_url"`
	UsePathStyle  bool   `koanf:"use_path_style" json:"use_path_style,omitempty" yaml:"use_path_style"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     "127.0.0.1:9100",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			ConnectAttempts: 5,
			ConnectBackoff:  500 * time.Millisecond,
		},
		Session: SessionConfig{
			CookieName:      "storefront_session",
			Duration:        auth.DefaultSessionDuration,
			ActiveDuration:  auth.DefaultActiveDuration,
			CleanupInterval: time.Minute,
		},
		Auth: AuthConfig{
			BcryptCost: auth.DefaultBcryptCost,
			LoginRate:  auth.DefaultLoginRate,
			LoginBurst: auth.DefaultLoginBurst,
			ProtectedPaths: []string{
				"/items",
				"/items/**",
				"/categories",
				"/categories/**",
				"/userHistory",
			},
		},
		Media: MediaConfig{Backend: "none"},
		Log:   LogConfig{Format: "json", Level: "info"},
	}
}

// Options controls where Load reads configuration from.
type Options struct {
	// File is the YAML config path. When empty, DefaultFile is tried and a
	// missing file is not an error.
	File string
	// DefaultFile is the fallback path, usually xdg.ConfigFile().
	DefaultFile string
	// Flags overrides file values for every flag the user changed.
	// Flag names map to keys through FlagKeys.
	Flags *pflag.FlagSet
	// EnvFiles are dotenv files loaded before reading the environment.
	EnvFiles []string
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"addr":             "server.addr",
	"metrics-addr":     "server.metrics_addr",
	"shutdown-timeout": "server.shutdown_timeout",
	"cookie-secure":    "server.cookie_secure",
	"database-url":     "database.url",
	"session-duration": "session.duration",
	"bcrypt-cost":      "auth.bcrypt_cost",
	"media-backend":    "media.backend",
	"log-format":       "log.format",
	"log-level":        "log.level",
}

// Load builds the effective configuration. Precedence, lowest first:
// defaults, YAML file, changed flags, DATABASE_URL.
func Load(opts Options) (Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")

	path := opts.File
	if path == "" && opts.DefaultFile != "" {
		if _, err := os.Stat(opts.DefaultFile); err == nil {
			path = opts.DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if k.Exists("auth.protected_paths") {
		// Decoding onto a non-nil slice would keep trailing defaults.
		cfg.Auth.ProtectedPaths = nil
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("CONFIG_ENV_FAILED").With("path", f).Wrap(err)
		}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr", "server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout", "server.shutdown_timeout must be positive")
	}
	if c.Session.CookieName == "" {
		return invalid("session.cookie_name", "session.cookie_name is required")
	}
	if c.Session.Duration <= 0 || c.Session.ActiveDuration <= 0 || c.Session.CleanupInterval <= 0 {
		return invalid("session", "session durations must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return invalid("auth.bcrypt_cost", "auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	switch c.Media.Backend {
	case "", "none":
	case "s3":
		if c.Media.Bucket == "" {
			return invalid("media.bucket", "media.bucket is required for the s3 backend")
		}
	default:
		return invalid("media.backend", "media.backend must be 'none' or 's3', got %q", c.Media.Backend)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	const mask = "********"
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err == nil {
			c.Database.URL = u.Redacted()
		} else {
			c.Database.URL = mask
		}
	}
	if c.Media.SecretKey != "" {
		c.Media.SecretKey = mask
	}
	if c.Media.AccessKey != "" {
		c.Media.AccessKey = mask
	}
	c.Auth.ProtectedPaths = append([]string(nil), c.Auth.ProtectedPaths...)
	return c
}

// YAML renders the configuration as YAML.
func (c Config) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c)
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}
