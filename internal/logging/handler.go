// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that copies WARN and higher
// records into the audit event log kept in the record store.
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

// writeTimeout bounds a single event log write.
const writeTimeout = 5 * time.Second

// EventLogHandler wraps another handler and also writes records at or above
// its level to the events table.
type EventLogHandler struct {
	inner slog.Handler
	gw    store.Gateway
	level slog.Level
	attrs []slog.Attr
	mu    *sync.Mutex
}

// NewEventLogHandler creates a handler forwarding WARN and above.
func NewEventLogHandler(inner slog.Handler, gw store.Gateway) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, gw, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a handler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, gw store.Gateway, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner: inner,
		gw:    gw,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner: h.inner.WithAttrs(attrs),
		gw:    h.gw,
		level: h.level,
		attrs: merged,
		mu:    h.mu,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner: h.inner.WithGroup(name),
		gw:    h.gw,
		level: h.level,
		attrs: h.attrs,
		mu:    h.mu,
	}
}

// writeToEventLog appends r to the events table. It uses its own context so
// the event is kept even when the request context is cancelled, and never
// logs its own failures.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	fields := make(map[string]string, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.String()
		return true
	})

	category := fields["category"]
	if category == "" {
		category = inferCategory(r.Message)
	}
	username := fields["username"]
	delete(fields, "category")

	metadata := "{}"
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			metadata = string(b)
		}
	}

	createdAt := r.Time
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	row := store.EventRow(model.Event{
		ID:        uuid.NewString(),
		Level:     slogLevelToEventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		Username:  username,
		Metadata:  metadata,
		CreatedAt: createdAt,
	})

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	h.mu.Lock()
	_ = h.gw.AppendRow(ctx, store.TableEvents, row)
	h.mu.Unlock()
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message text.
func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") ||
		strings.Contains(msg, "auth") || strings.Contains(msg, "token"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "ban") || strings.Contains(msg, "clear"):
		return model.EventCategoryModeration
	case strings.Contains(msg, "message"):
		return model.EventCategoryMessage
	case strings.Contains(msg, "cache") || strings.Contains(msg, "redis"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
