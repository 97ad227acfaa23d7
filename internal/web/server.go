// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package web serves the storefront HTML pages, the item JSON endpoint and
// the register/login/logout flow.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/gorilla/mux"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/internal/media"
	"github.com/storefront/storefront/internal/observability"
)

// tracerName identifies spans created by this package.
const tracerName = "github.com/storefront/storefront/internal/web"

// maxFormBytes bounds multipart bodies: the image plus the text fields.
const maxFormBytes = media.MaxUploadBytes + 1<<20

// Deps are the services the web layer drives.
type Deps struct {
	Auth     *auth.Service
	Guard    *auth.Guard
	Catalog  *catalog.Service
	Uploader media.Uploader         // optional, defaults to media.Disabled
	Limiter  *auth.LoginLimiter     // optional, nil disables login throttling
	Metrics  *observability.Metrics // optional
	Tracer   trace.Tracer           // optional, defaults to the global provider
}

// Options configures the HTTP surface.
type Options struct {
	Addr           string
	CookieName     string
	CookieSecure   bool
	ProtectedPaths []string
	Logger         *slog.Logger
}

// Server is the storefront web server.
type Server struct {
	deps      Deps
	opts      Options
	logger    *slog.Logger
	tracer    trace.Tracer
	protected []glob.Glob
	views     *renderer

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New validates deps and opts and prepares the templates and route gates.
func New(deps Deps, opts Options) (*Server, error) {
	if deps.Auth == nil || deps.Guard == nil || deps.Catalog == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service, guard and catalog service are required")
	}
	if opts.CookieName == "" {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("cookie name is required")
	}
	if deps.Uploader == nil {
		deps.Uploader = media.Disabled{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	protected := make([]glob.Glob, 0, len(opts.ProtectedPaths))
	for _, pattern := range opts.ProtectedPaths {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.Code("WEB_INVALID_CONFIG").
				With("pattern", pattern).
				Wrap(err)
		}
		protected = append(protected, g)
	}

	views, err := newRenderer()
	if err != nil {
		return nil, err
	}

	return &Server{
		deps:      deps,
		opts:      opts,
		logger:    opts.Logger,
		tracer:    deps.Tracer,
		protected: protected,
		views:     views,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument, s.loadSession)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/about", s.handleAbout).Methods(http.MethodGet)
	r.HandleFunc("/shop", s.handleShop).Methods(http.MethodGet)
	r.HandleFunc("/shop/{id}", s.handleShopItem).Methods(http.MethodGet)
	r.HandleFunc("/item/{id}", s.handleItemJSON).Methods(http.MethodGet)

	// Admin routes always require a session; the configured globs gate
	// further paths on top of these.
	admin := r.NewRoute().Subrouter()
	admin.Use(s.requireSession)
	admin.HandleFunc("/items", s.handleItems).Methods(http.MethodGet)
	admin.HandleFunc("/items/add", s.handleAddItemForm).Methods(http.MethodGet)
	admin.HandleFunc("/items/add", s.handleAddItem).Methods(http.MethodPost)
	admin.HandleFunc("/items/delete/{id}", s.handleDeleteItem).Methods(http.MethodGet)
	admin.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	admin.HandleFunc("/categories/add", s.handleAddCategoryForm).Methods(http.MethodGet)
	admin.HandleFunc("/categories/add", s.handleAddCategory).Methods(http.MethodPost)
	admin.HandleFunc("/categories/delete/{id}", s.handleDeleteCategory).Methods(http.MethodGet)
	admin.HandleFunc("/userHistory", s.handleUserHistory).Methods(http.MethodGet)

	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)

	// Router middleware only runs for matched routes.
	r.NotFoundHandler = s.instrument(s.loadSession(http.HandlerFunc(s.handleNotFound)))
	return r
}

// Start begins serving on opts.Addr. The returned channel receives a serve
// error, if any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_ALREADY_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.opts.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_web_server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
