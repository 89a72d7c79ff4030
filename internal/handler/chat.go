// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/service"
)

// ChatHandler serves the chat page, the send form and the snapshot stream.
type ChatHandler struct {
	view     poller.Source
	messages *service.MessageService
	hub      *poller.Hub
	renderer *render.Renderer
	interval time.Duration

	// closing ends every open stream.
	closing context.Context
	close   context.CancelFunc
}

// NewChatHandler creates a new ChatHandler. interval is the refresh period
// of both the page and the stream.
func NewChatHandler(view poller.Source, messages *service.MessageService, hub *poller.Hub, renderer *render.Renderer, interval time.Duration) *ChatHandler {
	if interval <= 0 {
		interval = poller.DefaultInterval
	}
	closing, closeFn := context.WithCancel(context.Background())
	return &ChatHandler{
		view:     view,
		messages: messages,
		hub:      hub,
		renderer: renderer,
		interval: interval,
		closing:  closing,
		close:    closeFn,
	}
}

// Close ends all open streams. The server calls it on shutdown since it
// does not cancel long-lived requests itself.
func (h *ChatHandler) Close() {
	h.close()
}

// Page handles GET /. It renders one snapshot; clients without JavaScript
// reload it every interval, the others switch to the stream.
func (h *ChatHandler) Page(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetSession(r)
	snap := h.view.Snapshot(r.Context(), viewer)
	snap.Viewer = viewer
	snap.RenderedAt = time.Now().UTC()

	err := h.renderer.Render(w, r, templateChat, render.TemplateData{
		Title:          "Chat",
		Session:        viewer,
		Data:           render.NewChatPage(snap),
		RefreshSeconds: int(h.interval / time.Second),
	})
	if err != nil {
		logAndInternalError(w, "failed to render chat page", "error", err)
	}
}

// Send handles POST /messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)

	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectChat, "Invalid form data")
		return
	}

	content, problem := validateContent(r.FormValue("content"))
	if problem != "" {
		flashError(w, r, h.renderer, redirectChat, problem)
		return
	}

	if _, err := h.messages.Append(r.Context(), sess, content); err != nil {
		slog.Error("send failed", "username", sess.Username, "error", err)
		flashError(w, r, h.renderer, redirectChat, "Message was not sent. "+userMessage(err))
		return
	}

	h.hub.Refresh(sess.Username)
	http.Redirect(w, r, redirectChat, http.StatusSeeOther)
}

// validateContent trims content and checks its length. A non-empty second
// result is the problem to show.
func validateContent(raw string) (string, string) {
	content, err := model.NormalizeContent(raw)
	switch {
	case errors.Is(err, model.ErrEmptyMessage):
		return "", "Message cannot be empty."
	case errors.Is(err, model.ErrMessageTooLong):
		return "", fmt.Sprintf("Message is too long (max %d characters).", model.MaxMessageLength)
	}
	return content, ""
}

// Stream handles GET /chat/stream. It runs a poller.Loop for the session
// and pushes each render as a server-sent "snapshot" event carrying the
// chat body HTML.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetSession(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Error("chat stream cannot flush", "error", err)
		return
	}

	var buf bytes.Buffer
	loop := poller.NewLoop(h.view, viewer, h.interval, func(_ context.Context, snap poller.Snapshot) error {
		if bannedIn(snap.Roster, viewer.Username) {
			_ = writeEvent(w, "banned", "")
			_ = rc.Flush()
			return errStreamBanned
		}
		buf.Reset()
		if err := h.renderer.Fragment(&buf, templateChat, blockChatBody, render.NewChatPage(snap)); err != nil {
			return err
		}
		if err := writeEvent(w, "snapshot", buf.String()); err != nil {
			return err
		}
		return rc.Flush()
	})

	unregister := h.hub.Register(loop)
	defer unregister()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.closing, cancel)
	defer stop()

	slog.Debug("chat stream opened", "username", viewer.Username, "streams", h.hub.Count())
	err := loop.Run(ctx)
	if errors.Is(err, errStreamBanned) {
		slog.Info("chat stream closed for banned user", "username", viewer.Username)
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("chat stream stopped", "category", model.EventCategorySystem, "username", viewer.Username, "error", err)
		return
	}
	slog.Debug("chat stream closed", "username", viewer.Username)
}

var errStreamBanned = errors.New("viewer is banned")

func bannedIn(roster []model.RosterEntry, username string) bool {
	for _, e := range roster {
		if e.Username == username {
			return e.IsBanned
		}
	}
	return false
}

// writeEvent writes one server-sent event. Every line of data becomes its
// own data field.
func writeEvent(w http.ResponseWriter, event, data string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimRight(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := w.Write([]byte(b.String()))
	return err
}
