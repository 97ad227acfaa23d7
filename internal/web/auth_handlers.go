// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package web

import (
	"net/http"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/pkg/errutil"
)

const throttledMessage = "Too many login attempts, please wait a moment and try again"

func (s *Server) page(r *http.Request, title string) view {
	return view{
		Title:       title,
		ActiveRoute: activeRoute(r.URL.Path),
		Session:     SessionFrom(r.Context()),
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	if err := s.views.render(w, status, name, v); err != nil {
		errutil.LogErrorContext(r.Context(), s.logger, "render failed", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// authStatus maps a failure kind to the status of the redisplayed form.
func authStatus(kind auth.Kind) int {
	switch kind {
	case auth.KindPasswordMismatch, auth.KindInvalidInput:
		return http.StatusBadRequest
	case auth.KindUserNameTaken:
		return http.StatusConflict
	case auth.KindUserNotFound, auth.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", s.page(r, "Register"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.page(r, "Register")
	if err := r.ParseForm(); err != nil {
		v.Error = "Invalid form submission"
		s.render(w, r, http.StatusBadRequest, "register", v)
		return
	}
	v.UserName = r.PostFormValue("userName")

	err := s.deps.Auth.Register(ctx, auth.RegisterRequest{
		UserName:        v.UserName,
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password2"),
		Email:           r.PostFormValue("email"),
	})
	if err != nil {
		kind := auth.KindOf(err)
		s.deps.Metrics.AuthAttempt("register", string(kind))
		status := authStatus(kind)
		if status >= http.StatusInternalServerError {
			errutil.LogErrorContext(ctx, s.logger, "registration failed", err)
		}
		v.Error = auth.Message(err)
		s.render(w, r, status, "register", v)
		return
	}

	s.deps.Metrics.AuthAttempt("register", "ok")
	v.Success = "User created"
	s.render(w, r, http.StatusOK, "register", v)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", s.page(r, "Log in"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.page(r, "Log in")
	if err := r.ParseForm(); err != nil {
		v.Error = "Invalid form submission"
		s.render(w, r, http.StatusBadRequest, "login", v)
		return
	}
	v.UserName = r.PostFormValue("userName")

	ip := clientIP(r)
	if s.deps.Limiter != nil && !s.deps.Limiter.Allow(ip) {
		s.deps.Metrics.AuthAttempt("login", "throttled")
		s.logger.WarnContext(ctx, "login throttled", "remote", ip)
		v.Error = throttledMessage
		s.render(w, r, http.StatusTooManyRequests, "login", v)
		return
	}

	user, err := s.deps.Auth.Login(ctx, v.UserName, r.PostFormValue("password"), r.UserAgent())
	if err != nil {
		kind := auth.KindOf(err)
		s.deps.Metrics.AuthAttempt("login", string(kind))
		status := authStatus(kind)
		if status >= http.StatusInternalServerError {
			errutil.LogErrorContext(ctx, s.logger, "login failed", err)
		}
		v.Error = auth.Message(err)
		s.render(w, r, status, "login", v)
		return
	}

	_, token, err := s.deps.Auth.StartSession(ctx, user, r.UserAgent(), ip)
	if err != nil {
		s.deps.Metrics.AuthAttempt("login", "session_failed")
		errutil.LogErrorContext(ctx, s.logger, "start session failed", err)
		v.Error = auth.Message(err)
		s.render(w, r, http.StatusInternalServerError, "login", v)
		return
	}

	s.deps.Metrics.AuthAttempt("login", "ok")
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cookie, err := r.Cookie(s.opts.CookieName); err == nil {
		if err := s.deps.Guard.Revoke(ctx, cookie.Value); err != nil {
			errutil.LogErrorContext(ctx, s.logger, "logout failed", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "user_history", s.page(r, "Login history"))
}
