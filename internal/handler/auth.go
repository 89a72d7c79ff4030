// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/mileusna/useragent"

	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/service"
	"github.com/olegiv/ochat-go/internal/session"
)

// AuthHandler handles login, signup and logout.
type AuthHandler struct {
	identity        *service.IdentityService
	events          *service.EventService
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(identity *service.IdentityService, events *service.EventService, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		identity:        identity,
		events:          events,
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginForm handles GET /login. Logged-in users go straight to the chat.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetSession(r).Authenticated {
		http.Redirect(w, r, redirectChat, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, templateLogin, render.TemplateData{Title: "Log in"}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectLogin, "Invalid form data")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, userMessage(service.ErrInvalidCredentials))
		return
	}

	meta := clientMetadata(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsLocked(username); locked {
			slog.Warn("login attempt on locked username", "category", model.EventCategoryAuth,
				"username", username, "remaining", remaining.Round(time.Second).String())
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	role, err := h.identity.Authenticate(r.Context(), username, password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotFound):
		slog.Warn("login failed", "category", model.EventCategoryAuth,
			"username", username, "reason", "not_found", "ip", meta["ip"])
		h.loginFailed(w, r, username)
		return
	case errors.Is(err, service.ErrBanned):
		slog.Warn("login failed", "category", model.EventCategoryAuth,
			"username", username, "reason", "banned", "ip", meta["ip"])
		flashError(w, r, h.renderer, redirectLogin, userMessage(err))
		return
	default:
		slog.Error("login error", "username", username, "error", err)
		flashError(w, r, h.renderer, redirectLogin, userMessage(err))
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	sess := model.NewSession(username, role)
	if err := session.Login(r.Context(), h.sessionManager, sess); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", username, meta)
	flashSuccess(w, r, h.renderer, redirectChat, "Welcome, "+username+"!")
}

// loginFailed records a failed attempt and picks the flash to show.
func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, username string) {
	msg := userMessage(service.ErrNotFound)
	if h.loginProtection != nil {
		if locked, d := h.loginProtection.RecordFailedAttempt(username); locked {
			msg = fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(d))
		} else if remaining := h.loginProtection.RemainingAttempts(username); remaining > 0 && remaining <= 2 {
			msg = fmt.Sprintf("%s %d attempts left.", msg, remaining)
		}
	}
	flashError(w, r, h.renderer, redirectLogin, msg)
}

// Signup handles POST /signup. New accounts get the user role and must log
// in afterwards.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectLogin, "Invalid form data")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if err := h.identity.Register(r.Context(), username, password); err != nil {
		if errors.Is(err, service.ErrAlreadyExists) || errors.Is(err, service.ErrInvalidCredentials) {
			slog.Info("signup rejected", "username", username, "error", err)
		} else {
			slog.Error("signup failed", "username", username, "error", err)
		}
		flashError(w, r, h.renderer, redirectLogin, userMessage(err))
		return
	}

	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User signed up", username, clientMetadata(r))
	flashSuccess(w, r, h.renderer, redirectLogin, "Signup successful! Please log in.")
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	if sess.Authenticated {
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", sess.Username, clientMetadata(r))
	}

	if err := session.Logout(r.Context(), h.sessionManager); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been logged out.", flashTypeInfo)
}

// clientMetadata describes the caller for audit events.
func clientMetadata(r *http.Request) map[string]any {
	ua := useragent.Parse(r.UserAgent())

	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Tablet:
		device = "tablet"
	case ua.Mobile:
		device = "mobile"
	}

	meta := map[string]any{
		"ip":     r.RemoteAddr,
		"device": device,
	}
	if ua.Name != "" {
		meta["browser"] = ua.Name
	}
	if ua.OS != "" {
		meta["os"] = ua.OS
	}
	return meta
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
