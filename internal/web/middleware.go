// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/pkg/errutil"
)

type sessionKey struct{}

// SessionFrom returns the authorized session attached to ctx, if any.
func SessionFrom(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return s
}

// notFoundRoute labels requests that matched no route, keeping metric
// cardinality bounded.
const notFoundRoute = "not_found"

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.written {
		r.status = status
		r.written = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.status = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b) //nolint:wrapcheck // passthrough
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return notFoundRoute
}

// instrument wraps a request in a server span, records request metrics and
// writes one access log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeName(r)
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		s.deps.Metrics.ObserveRequest(route, rec.status, elapsed)
		s.logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"remote", clientIP(r))
	})
}

// loadSession resolves the session cookie through the guard and attaches the
// session to the request context. Requests for configured protected paths
// without an authorized session are redirected to /login before any handler
// runs.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var session *auth.Session
		if cookie, err := r.Cookie(s.opts.CookieName); err == nil && cookie.Value != "" {
			session, err = s.deps.Guard.Authorize(ctx, cookie.Value)
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, sessionKey{}, session)
			case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrSessionExpired):
				s.clearSessionCookie(w)
			default:
				errutil.LogErrorContext(ctx, s.logger, "session lookup failed", err)
			}
		}

		if session == nil && s.isProtected(r.URL.Path) {
			s.denySession(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession denies any request that reached it without an authorized
// session, whatever the configured protected paths say.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFrom(r.Context()) == nil {
			s.denySession(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) denySession(w http.ResponseWriter, r *http.Request) {
	trace.SpanFromContext(r.Context()).AddEvent("session.denied")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) isProtected(path string) bool {
	for _, g := range s.protected {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	// No Expires: the server-side session owns the lifetime and slides it.
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clientIP returns the connection's remote host. Forwarding headers are not
// trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// activeRoute returns the first path segment for navigation highlighting.
func activeRoute(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}
