// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ochat-go/internal/middleware"
)

// Routes returns the API router, to be mounted under /api. send wraps the
// message endpoint, typically with a per-user rate limit; it may be nil.
func (h *Handler) Routes(bans middleware.BanChecker, send func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/token", h.IssueToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(h.secret, bans))

		r.Get("/snapshot", h.Snapshot)
		r.Get("/messages", h.ListMessages)
		r.Get("/users", h.ListUsers)
		if send != nil {
			r.With(send).Post("/messages", h.SendMessage)
		} else {
			r.Post("/messages", h.SendMessage)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIAdmin)
			r.Delete("/messages", h.ClearMessages)
			r.Put("/users/{username}/ban", h.Ban)
			r.Delete("/users/{username}/ban", h.Unban)
		})
	})

	return r
}
