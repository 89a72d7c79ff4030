// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

// MessageService is the append-only message log. Reads go through the
// messages cache; writes go straight to the store and then invalidate.
type MessageService struct {
	gw    store.Gateway
	cache *cache.Manager
	now   func() time.Time

	mu sync.Mutex
}

// NewMessageService creates a MessageService.
func NewMessageService(gw store.Gateway, c *cache.Manager) *MessageService {
	return &MessageService{gw: gw, cache: c, now: time.Now}
}

// Append records content from the session's user, stamped with the
// current UTC time at second precision.
func (s *MessageService) Append(ctx context.Context, by model.Session, content string) (model.Message, error) {
	if !by.Authenticated {
		return model.Message{}, ErrUnauthenticated
	}

	msg := model.Message{
		Username:  by.Username,
		Role:      by.Role,
		Content:   content,
		Timestamp: s.now().UTC().Truncate(time.Second),
	}

	s.mu.Lock()
	err := s.gw.AppendRow(ctx, store.TableMessages, messageRow(msg))
	s.mu.Unlock()
	if err != nil {
		return model.Message{}, fmt.Errorf("appending message: %w", err)
	}

	_ = s.cache.InvalidateAll(ctx)
	slog.Debug("message appended", "username", by.Username, "length", len(content))
	return msg, nil
}

// ReadAll returns the log in append order, read through the messages cache.
func (s *MessageService) ReadAll(ctx context.Context) ([]model.Message, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.KeyMessages, s.cache.MessagesTTL, s.fetch)
}

// ClearAll deletes every message with one range delete and returns how many
// were removed. An empty log is left untouched.
func (s *MessageService) ClearAll(ctx context.Context, by model.Session) (int, error) {
	if !by.IsAdmin() {
		return 0, ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.gw.ReadAllRows(ctx, store.TableMessages)
	if err != nil {
		return 0, fmt.Errorf("reading messages: %w", err)
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	if err := s.gw.DeleteRows(ctx, store.TableMessages, 2, len(rows)); err != nil {
		return 0, fmt.Errorf("clearing messages: %w", err)
	}

	_ = s.cache.InvalidateAll(ctx)
	removed := len(rows) - 1
	slog.Warn("messages cleared", "category", model.EventCategoryModeration, "by", by.Username, "count", removed)
	return removed, nil
}

// PruneOlderThan deletes the leading run of messages stamped before cutoff
// with one range delete. It stops at the first message that is newer or has
// an unreadable timestamp.
func (s *MessageService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.gw.ReadAllRows(ctx, store.TableMessages)
	if err != nil {
		return 0, fmt.Errorf("reading messages: %w", err)
	}

	n := 0
	for _, rec := range store.Records(rows) {
		ts, err := model.ParseTimestamp(rec["timestamp"])
		if err != nil || !ts.Before(cutoff) {
			break
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}

	if err := s.gw.DeleteRows(ctx, store.TableMessages, 2, n+1); err != nil {
		return 0, fmt.Errorf("pruning messages: %w", err)
	}

	_ = s.cache.InvalidateAll(ctx)
	slog.Info("messages pruned", "category", model.EventCategoryMessage, "count", n, "cutoff", cutoff)
	return n, nil
}

func (s *MessageService) fetch(ctx context.Context) ([]model.Message, error) {
	recs, err := s.gw.ReadAllRecords(ctx, store.TableMessages)
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	msgs := make([]model.Message, 0, len(recs))
	for _, r := range recs {
		msgs = append(msgs, messageFromRecord(r))
	}
	return msgs, nil
}
