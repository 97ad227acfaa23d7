// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/media"
	"github.com/storefront/storefront/internal/observability"
	"github.com/storefront/storefront/internal/store"
	"github.com/storefront/storefront/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreOpener connects to PostgreSQL.
	// Default: store.Open
	StoreOpener func(ctx context.Context, opts store.Options) (Database, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// UploaderFactory creates the feature image uploader.
	// Default: newUploader
	UploaderFactory func(ctx context.Context, cfg config.MediaConfig) (media.Uploader, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// WebServerFactory creates the web server.
	// Default: web.New
	WebServerFactory func(deps web.Deps, opts web.Options) (WebServer, error)
}

// Database wraps the methods used from store.Store.
type Database interface {
	Pool() *pgxpool.Pool
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator wraps the methods used to migrate on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator wraps the methods used by the migrate command.
type Migrator interface {
	AutoMigrator
	Down() error
	Force(version int) error
	Status() (store.Status, error)
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func (d *ServeDeps) setDefaults() {
	if d.StoreOpener == nil {
		d.StoreOpener = func(ctx context.Context, opts store.Options) (Database, error) {
			return store.Open(ctx, opts) //nolint:wrapcheck // oops error from store
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL) //nolint:wrapcheck // oops error from store
		}
	}
	if d.UploaderFactory == nil {
		d.UploaderFactory = newUploader
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, logger)
		}
	}
	if d.WebServerFactory == nil {
		d.WebServerFactory = func(deps web.Deps, opts web.Options) (WebServer, error) {
			return web.New(deps, opts) //nolint:wrapcheck // oops error from web
		}
	}
}
