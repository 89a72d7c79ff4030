// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the chat's business logic: identity and
// moderation, the message log, the audit event log and the view that
// assembles render snapshots.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

// EventService writes and reads the audit event log.
type EventService struct {
	gw  store.Gateway
	now func() time.Time
	mu  sync.Mutex
}

// NewEventService creates a new EventService.
func NewEventService(gw store.Gateway) *EventService {
	return &EventService{gw: gw, now: time.Now}
}

// LogEvent appends an event.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, username string, metadata map[string]any) error {
	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	row := store.EventRow(model.Event{
		ID:        uuid.NewString(),
		Level:     level,
		Category:  category,
		Message:   message,
		Username:  username,
		Metadata:  metadataJSON,
		CreatedAt: s.now(),
	})

	s.mu.Lock()
	err := s.gw.AppendRow(ctx, store.TableEvents, row)
	s.mu.Unlock()
	if err != nil {
		slog.Error("failed to log event", "category", category, "error", err)
		return err
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message, username string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, username, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message, username string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, username, metadata)
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, username string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, username, metadata)
}

// ListEvents returns up to limit events, newest first. A non-positive
// limit returns all of them.
func (s *EventService) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	recs, err := s.gw.ReadAllRecords(ctx, store.TableEvents)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	events := make([]model.Event, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		events = append(events, store.EventFromRecord(recs[i]))
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

// DeleteOldEvents removes the leading events created more than olderThan
// ago and returns how many were removed.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.gw.ReadAllRecords(ctx, store.TableEvents)
	if err != nil {
		return 0, fmt.Errorf("reading events: %w", err)
	}

	n := 0
	for _, r := range recs {
		e := store.EventFromRecord(r)
		if e.CreatedAt.IsZero() || !e.CreatedAt.Before(cutoff) {
			break
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}

	if err := s.gw.DeleteRows(ctx, store.TableEvents, 2, n+1); err != nil {
		return 0, fmt.Errorf("deleting old events: %w", err)
	}
	return n, nil
}
