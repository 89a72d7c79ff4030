// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/ochat-go/internal/config"
	"github.com/olegiv/ochat-go/internal/handler"
	"github.com/olegiv/ochat-go/internal/handler/api"
	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/web"
)

// Per-user send limit, shared by the form and the API.
const (
	sendRate  = 1.0
	sendBurst = 5
)

// routes bundles what newRouter mounts.
type routes struct {
	sessions    *scs.SessionManager
	bans        middleware.BanChecker
	auth        *handler.AuthHandler
	chat        *handler.ChatHandler
	admin       *handler.AdminHandler
	health      *handler.HealthHandler
	api         *api.Handler
	login       *middleware.LoginProtection
	publicLimit *middleware.GlobalRateLimiter
}

func newRouter(cfg *config.Config, h routes) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(chimw.RedirectSlashes)
	r.Use(middleware.RequestPath)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))
	slog.Info("security headers middleware initialized", "hsts", !cfg.IsDevelopment(), "x_frame_options", "DENY")

	// Bearer-token clients carry no cookies, so CSRF checks skip the API.
	r.Use(middleware.SkipCSRFPrefix("/api/"))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr())))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	// Static assets: cache for 1 day
	static := http.StripPrefix("/static/", http.FileServer(http.FS(web.Static())))
	r.With(staticCache(86400)).Handle("/static/*", static)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(chimw.NoCache)
		r.Mount("/", h.api.Routes(h.bans, middleware.SendRateLimit(sendRate, sendBurst)))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.LoadAndSave)
		r.Use(middleware.LoadSession(h.sessions))
		r.Use(middleware.EjectBanned(h.sessions, h.bans))

		r.Get("/health", h.health.Health)
		r.Get("/health/live", h.health.Liveness)
		r.Get("/health/ready", h.health.Readiness)

		// The stream is long-lived and must not be compressed or timed out.
		r.With(middleware.RequireAuth).Get(handler.RouteStream, h.chat.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Use(chimw.Compress(5))

			r.Get(handler.RouteLogin, h.auth.LoginForm)
			r.With(h.login.Middleware()).Post(handler.RouteLogin, h.auth.Login)
			r.With(h.publicLimit.Middleware()).Post(handler.RouteSignup, h.auth.Signup)
			r.Post(handler.RouteLogout, h.auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get(handler.RouteRoot, h.chat.Page)
				r.With(middleware.SendRateLimit(sendRate, sendBurst)).Post(handler.RouteMessages, h.chat.Send)
			})

			r.Route(handler.RouteAdmin, func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post(handler.RouteAdminBan, h.admin.Ban)
				r.Post(handler.RouteAdminUnban, h.admin.Unban)
				r.Post(handler.RouteAdminClear, h.admin.ClearMessages)
				r.Get(handler.RouteAdminJobs, h.admin.Jobs)
				r.Post(handler.RouteAdminJobRun, h.admin.RunJob)
				r.Get(handler.RouteAdminEvents, h.admin.Events)
			})
		})
	})

	return r
}

// staticCache sets a public Cache-Control max-age on static responses.
func staticCache(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
			next.ServeHTTP(w, r)
		})
	}
}
