// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/scheduler"
	"github.com/olegiv/ochat-go/internal/service"
)

// JobRunner lists scheduled jobs and runs them on demand.
type JobRunner interface {
	List() []scheduler.JobInfo
	TriggerNow(name string) error
}

// AdminHandler handles moderation and the admin pages.
type AdminHandler struct {
	identity *service.IdentityService
	messages *service.MessageService
	events   *service.EventService
	jobs     JobRunner
	hub      *poller.Hub
	renderer *render.Renderer
}

// NewAdminHandler creates a new AdminHandler. jobs may be nil.
func NewAdminHandler(identity *service.IdentityService, messages *service.MessageService, events *service.EventService, jobs JobRunner, hub *poller.Hub, renderer *render.Renderer) *AdminHandler {
	return &AdminHandler{
		identity: identity,
		messages: messages,
		events:   events,
		jobs:     jobs,
		hub:      hub,
		renderer: renderer,
	}
}

// Ban handles POST /admin/users/{username}/ban.
func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetSession(r)
	target := chi.URLParam(r, "username")

	if _, err := h.identity.Ban(r.Context(), admin, target); err != nil {
		slog.Error("ban failed", "username", target, "by", admin.Username, "error", err)
		flashError(w, r, h.renderer, redirectChat, "Ban failed. "+userMessage(err))
		return
	}

	h.hub.Refresh(admin.Username)
	flashSuccess(w, r, h.renderer, redirectChat, fmt.Sprintf("%s has been banned.", target))
}

// Unban handles POST /admin/users/{username}/unban.
func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetSession(r)
	target := chi.URLParam(r, "username")

	removed, err := h.identity.Unban(r.Context(), admin, target)
	if err != nil {
		slog.Error("unban failed", "username", target, "by", admin.Username, "error", err)
		flashError(w, r, h.renderer, redirectChat, "Unban failed. "+userMessage(err))
		return
	}

	h.hub.Refresh(admin.Username)
	if !removed {
		flashAndRedirect(w, r, h.renderer, redirectChat, fmt.Sprintf("%s was not banned.", target), flashTypeInfo)
		return
	}
	flashSuccess(w, r, h.renderer, redirectChat, fmt.Sprintf("%s has been unbanned.", target))
}

// ClearMessages handles POST /admin/messages/clear.
func (h *AdminHandler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetSession(r)

	n, err := h.messages.ClearAll(r.Context(), admin)
	if err != nil {
		slog.Error("clear messages failed", "by", admin.Username, "error", err)
		flashError(w, r, h.renderer, redirectChat, "Clearing messages failed. "+userMessage(err))
		return
	}

	h.hub.Refresh(admin.Username)
	if n == 0 {
		flashAndRedirect(w, r, h.renderer, redirectChat, "There were no messages to clear.", flashTypeInfo)
		return
	}
	flashSuccess(w, r, h.renderer, redirectChat, fmt.Sprintf("Cleared %d messages.", n))
}

// Jobs handles GET /admin/jobs.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	var jobs []scheduler.JobInfo
	if h.jobs != nil {
		jobs = h.jobs.List()
	}

	err := h.renderer.Render(w, r, templateJobs, render.TemplateData{
		Title:   "Scheduled jobs",
		Session: middleware.GetSession(r),
		Data:    jobs,
	})
	if err != nil {
		logAndInternalError(w, "failed to render jobs page", "error", err)
	}
}

// RunJob handles POST /admin/jobs/{name}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.NotFound(w, r)
		return
	}

	name := chi.URLParam(r, "name")
	admin := middleware.GetSession(r)

	if err := h.jobs.TriggerNow(name); err != nil {
		slog.Warn("manual job run failed", "category", model.EventCategorySystem,
			"job", name, "by", admin.Username, "error", err)
		flashError(w, r, h.renderer, redirectAdminJobs, fmt.Sprintf("Job %s failed: %v", name, err))
		return
	}

	slog.Info("job run manually", "job", name, "by", admin.Username)
	flashSuccess(w, r, h.renderer, redirectAdminJobs, fmt.Sprintf("Job %s completed.", name))
}

// Events handles GET /admin/events.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context(), eventsPageLimit)
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	err = h.renderer.Render(w, r, templateEvents, render.TemplateData{
		Title:   "Audit events",
		Session: middleware.GetSession(r),
		Data:    events,
	})
	if err != nil {
		logAndInternalError(w, "failed to render events page", "error", err)
	}
}
