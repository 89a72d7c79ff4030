// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeySession     ContextKey = "session"
	ContextKeyRequestPath ContextKey = "request_path"
)

// BanChecker reports whether a username is banned. Implementations are
// expected to answer from a cache, since the check runs on every request.
type BanChecker interface {
	BannedInRoster(ctx context.Context, username string) (bool, error)
}

// LoadSession creates middleware that rebuilds the chat identity from the
// browser session and stores it in the request context.
func LoadSession(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.Current(r.Context(), sm)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess model.Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, sess)
}

// GetSession returns the identity stored in the request context. The zero
// Session is returned for anonymous requests.
func GetSession(r *http.Request) model.Session {
	sess, _ := r.Context().Value(ContextKeySession).(model.Session)
	return sess
}

// RequireAuth creates middleware that redirects anonymous requests to the
// login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetSession(r).Authenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin creates middleware that rejects non-admin sessions with 403.
// It must run after LoadSession or BearerAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r)
		if !sess.Authenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !sess.IsAdmin() {
			slog.Warn("access denied",
				"category", model.EventCategoryAuth,
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"username", sess.Username,
				"role", sess.Role,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EjectBanned creates middleware that ends the browser session of a user
// who has been banned since logging in. A failed ban lookup lets the request
// through; the next request checks again.
func EjectBanned(sm *scs.SessionManager, bans BanChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r)
			if !sess.Authenticated {
				next.ServeHTTP(w, r)
				return
			}

			banned, err := bans.BannedInRoster(r.Context(), sess.Username)
			if err != nil {
				slog.Warn("ban check failed", "username", sess.Username, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if banned {
				_ = session.Logout(r.Context(), sm)
				slog.Info("banned user logged out", "category", model.EventCategoryAuth, "username", sess.Username)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestPath creates middleware that stores the request path in the context.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}
