// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
)

// Messages shown in place of a part that failed to load.
const (
	RosterUnavailable   = "The user list could not be loaded."
	MessagesUnavailable = "Messages could not be loaded."
)

// ChatView assembles render snapshots from the roster and the message log.
type ChatView struct {
	identity *IdentityService
	messages *MessageService
}

// NewChatView creates a ChatView.
func NewChatView(identity *IdentityService, messages *MessageService) *ChatView {
	return &ChatView{identity: identity, messages: messages}
}

// Snapshot reads roster and messages through the cache. A part that fails
// to load is left empty and noted in Errors.
func (v *ChatView) Snapshot(ctx context.Context, viewer model.Session) poller.Snapshot {
	snap := poller.Snapshot{Viewer: viewer}

	roster, err := v.identity.ListUsers(ctx)
	if err != nil {
		slog.Error("roster read failed", "username", viewer.Username, "error", err)
		snap.Errors = append(snap.Errors, RosterUnavailable)
	} else {
		snap.Roster = roster
	}

	msgs, err := v.messages.ReadAll(ctx)
	if err != nil {
		slog.Error("message read failed", "username", viewer.Username, "error", err)
		snap.Errors = append(snap.Errors, MessagesUnavailable)
	} else {
		snap.Messages = msgs
	}

	return snap
}

var _ poller.Source = (*ChatView)(nil)
