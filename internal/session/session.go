// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session binds a chat identity to a browser cookie.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/ochat-go/internal/model"
)

// Session data keys.
const (
	KeyUsername = "username"
	KeyRole     = "role"
	KeyFlash    = "flash"
)

// Lifetime is the absolute lifetime of a browser session.
const Lifetime = 24 * time.Hour

// New creates a new session manager backed by the SQLite sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := newManager(isDev)
	sm.Store = sqlite3store.New(db)
	return sm
}

// NewMemory creates a session manager that keeps sessions in process memory.
// It is used with the in-memory record store.
func NewMemory(isDev bool) *scs.SessionManager {
	sm := newManager(isDev)
	sm.Store = memstore.New()
	return sm
}

func newManager(isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Lifetime = Lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !isDev // Secure cookies in production only
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}
	return sm
}

// Login stores sess in the request's session under a fresh token.
func Login(ctx context.Context, sm *scs.SessionManager, sess model.Session) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	sm.Put(ctx, KeyUsername, sess.Username)
	sm.Put(ctx, KeyRole, string(sess.Role))
	return nil
}

// Logout destroys the request's session.
func Logout(ctx context.Context, sm *scs.SessionManager) error {
	return sm.Destroy(ctx)
}

// Current returns the identity stored in the request's session. The zero
// Session is returned when nobody is logged in.
func Current(ctx context.Context, sm *scs.SessionManager) model.Session {
	username := sm.GetString(ctx, KeyUsername)
	if username == "" {
		return model.Session{}
	}
	return model.NewSession(username, model.ParseRole(sm.GetString(ctx, KeyRole)))
}

// Flash stores a one-shot message shown on the next page render.
func Flash(ctx context.Context, sm *scs.SessionManager, msg string) {
	sm.Put(ctx, KeyFlash, msg)
}

// PopFlash returns and clears the pending flash message.
func PopFlash(ctx context.Context, sm *scs.SessionManager) string {
	return sm.PopString(ctx, KeyFlash)
}
