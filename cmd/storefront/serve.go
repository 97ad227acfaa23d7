// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/storefront/storefront/internal/auth"
	authmem "github.com/storefront/storefront/internal/auth/memory"
	authpg "github.com/storefront/storefront/internal/auth/postgres"
	"github.com/storefront/storefront/internal/catalog"
	catmem "github.com/storefront/storefront/internal/catalog/memory"
	catpg "github.com/storefront/storefront/internal/catalog/postgres"
	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/logging"
	"github.com/storefront/storefront/internal/media"
	"github.com/storefront/storefront/internal/observability"
	"github.com/storefront/storefront/internal/store"
	"github.com/storefront/storefront/internal/web"
	"github.com/storefront/storefront/pkg/errutil"
)

// Storage backends accepted by --store.
const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

// limiterPruneInterval is how often idle login limiter entries are dropped.
const limiterPruneInterval = time.Minute

// serveOptions holds flags that are not part of the config file.
type serveOptions struct {
	store       string
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *ServeDeps) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the storefront web server together with the metrics and
health endpoints and the expired session janitor.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, opts, deps)
		},
	}

	addConfigFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.store, "store", storePostgres, "storage backend (postgres or memory)")
	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", true, "apply pending migrations before serving (postgres only)")

	return cmd
}

// repositories groups the storage the services are built on.
type repositories struct {
	users    auth.UserRepository
	sessions auth.SessionRepository
	catalog  catalog.Repository
	ready    observability.ReadinessChecker
	close    func()
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, opts *serveOptions, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "load configuration").Wrap(err)
	}

	logger := logging.SetDefault("storefront", version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting storefront",
		"addr", cfg.Server.Addr,
		"store", opts.store,
		"media_backend", cfg.Media.Backend)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repos, err := openRepositories(ctx, cfg, opts, deps, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	authSvc, err := auth.NewService(repos.users, repos.sessions, auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.WithLogger(logger),
		auth.WithSessionDuration(cfg.Session.Duration))
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("component", "auth").Wrap(err)
	}
	guard, err := auth.NewGuard(repos.sessions,
		auth.WithActiveDuration(cfg.Session.ActiveDuration),
		auth.WithGuardLogger(logger))
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("component", "guard").Wrap(err)
	}
	catalogSvc, err := catalog.NewService(repos.catalog, catalog.WithLogger(logger))
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("component", "catalog").Wrap(err)
	}
	uploader, err := deps.UploaderFactory(ctx, cfg.Media)
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("component", "media").Wrap(err)
	}

	var background sync.WaitGroup
	defer background.Wait()
	// Cancel before Wait so background goroutines exit on every return path.
	defer cancel()

	limiter := auth.NewLoginLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst)
	background.Add(1)
	go func() {
		defer background.Done()
		limiter.Run(ctx, limiterPruneInterval)
	}()

	shutdownTimeout := cfg.Server.ShutdownTimeout

	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
	)
	if cfg.Server.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Server.MetricsAddr, repos.ready, logger)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("STARTUP_FAILED").With("component", "observability").Wrap(startErr)
		}
		defer stopServer(obsServer, "observability", shutdownTimeout, logger)
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	webServer, err := deps.WebServerFactory(web.Deps{
		Auth:     authSvc,
		Guard:    guard,
		Catalog:  catalogSvc,
		Uploader: uploader,
		Limiter:  limiter,
		Metrics:  metrics,
	}, web.Options{
		Addr:           cfg.Server.Addr,
		CookieName:     cfg.Session.CookieName,
		CookieSecure:   cfg.Server.CookieSecure,
		ProtectedPaths: cfg.Auth.ProtectedPaths,
		Logger:         logger,
	})
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("component", "web").Wrap(err)
	}
	webErrChan, err := webServer.Start()
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("component", "web").Wrap(err)
	}
	defer stopServer(webServer, "web", shutdownTimeout, logger)
	go monitorServerErrors(ctx, cancel, webErrChan, "web", logger)

	background.Add(1)
	go func() {
		defer background.Done()
		runJanitor(ctx, guard, metrics, cfg.Session.CleanupInterval, logger)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Printf("Storefront listening on %s\n", webServer.Addr())
	logger.Info("storefront ready", "addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	return nil
}

// openRepositories connects the configured storage backend. For postgres it
// refuses to continue when the database cannot be reached.
func openRepositories(ctx context.Context, cfg config.Config, opts *serveOptions, deps *ServeDeps, logger *slog.Logger) (*repositories, error) {
	switch opts.store {
	case storeMemory:
		logger.Warn("using in-memory storage; all data is lost on exit")
		return &repositories{
			users:    authmem.NewUserRepository(),
			sessions: authmem.NewSessionRepository(),
			catalog:  catmem.NewRepository(),
			close:    func() {},
		}, nil

	case storePostgres:
		if cfg.Database.URL == "" {
			return nil, oops.Code("CONFIG_INVALID").
				With("key", "database.url").
				Errorf("a database URL is required (DATABASE_URL, --database-url or database.url)")
		}

		if opts.autoMigrate {
			if err := autoMigrate(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
				return nil, err
			}
		}

		db, err := deps.StoreOpener(ctx, store.Options{
			URL:             cfg.Database.URL,
			ConnectAttempts: cfg.Database.ConnectAttempts,
			ConnectBackoff:  cfg.Database.ConnectBackoff,
			Logger:          logger,
		})
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}

		pool := db.Pool()
		return &repositories{
			users:    authpg.NewUserRepository(pool),
			sessions: authpg.NewSessionRepository(pool),
			catalog:  catpg.NewRepository(pool),
			ready:    db.Ping,
			close:    db.Close,
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("store", opts.store).
			Errorf("store must be %q or %q", storePostgres, storeMemory)
	}
}

// autoMigrate applies pending migrations and always closes the migrator.
func autoMigrate(databaseURL string, factory func(string) (AutoMigrator, error), logger *slog.Logger) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

// newUploader returns the configured feature image backend.
func newUploader(ctx context.Context, cfg config.MediaConfig) (media.Uploader, error) {
	if cfg.Backend != "s3" {
		return media.Disabled{}, nil
	}
	return media.NewS3Uploader(ctx, media.S3Config{ //nolint:wrapcheck // oops error from media
		Bucket:        cfg.Bucket,
		Region:        cfg.Region,
		Endpoint:      cfg.Endpoint,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		PublicBaseURL: cfg.PublicBaseURL,
		UsePathStyle:  cfg.UsePathStyle,
	})
}

// runJanitor removes expired sessions every interval until ctx is done.
func runJanitor(ctx context.Context, guard *auth.Guard, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := guard.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errutil.LogErrorContext(ctx, logger, "session sweep failed", err)
				}
				continue
			}
			metrics.Swept(n)
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// stopper is satisfied by both servers.
type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(s stopper, name string, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
