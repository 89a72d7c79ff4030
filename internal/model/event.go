// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth       = "auth"
	EventCategoryModeration = "moderation"
	EventCategoryMessage    = "message"
	EventCategorySystem     = "system"
	EventCategoryCache      = "cache"
)

// Event represents an audit log entry stored in the events table.
type Event struct {
	ID        string
	Level     string
	Category  string
	Message   string
	Username  string
	Metadata  string // JSON string
	CreatedAt time.Time
}
