// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/model"
)

// SendRequest is the body of POST /api/messages.
type SendRequest struct {
	Content string `json:"content"`
}

// ModerationResult reports the outcome of a ban or unban.
type ModerationResult struct {
	Username string `json:"username"`
	Banned   bool   `json:"banned"`
	Changed  bool   `json:"changed"`
}

// ClearResult reports how many messages were removed.
type ClearResult struct {
	Removed int `json:"removed"`
}

// Snapshot handles GET /api/snapshot. A degraded snapshot is still a 200;
// its errors field names the missing parts.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetSession(r)
	snap := h.view.Snapshot(r.Context(), viewer)
	snap.Viewer = viewer
	snap.RenderedAt = time.Now().UTC()
	WriteSuccess(w, snap, nil)
}

// ListMessages handles GET /api/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.ReadAll(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	WriteSuccess(w, msgs, &Meta{Total: len(msgs)})
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	roster, err := h.identity.ListUsers(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if roster == nil {
		roster = []model.RosterEntry{}
	}
	WriteSuccess(w, roster, &Meta{Total: len(roster)})
}

// SendMessage handles POST /api/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content, err := model.NormalizeContent(req.Content)
	if err != nil {
		WriteBadRequest(w, "Validation failed", map[string]string{"content": err.Error()})
		return
	}

	sess := middleware.GetSession(r)
	msg, err := h.messages.Append(r.Context(), sess, content)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	h.hub.Refresh(sess.Username)
	WriteCreated(w, msg)
}

// ClearMessages handles DELETE /api/messages.
func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	n, err := h.messages.ClearAll(r.Context(), sess)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	h.hub.Refresh(sess.Username)
	WriteSuccess(w, ClearResult{Removed: n}, nil)
}

// Ban handles PUT /api/users/{username}/ban. Banning twice is not an error.
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	target := chi.URLParam(r, "username")

	added, err := h.identity.Ban(r.Context(), sess, target)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	h.hub.Refresh(sess.Username)
	WriteSuccess(w, ModerationResult{Username: target, Banned: true, Changed: added}, nil)
}

// Unban handles DELETE /api/users/{username}/ban.
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	target := chi.URLParam(r, "username")

	removed, err := h.identity.Unban(r.Context(), sess, target)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	h.hub.Refresh(sess.Username)
	WriteSuccess(w, ModerationResult{Username: target, Banned: false, Changed: removed}, nil)
}
