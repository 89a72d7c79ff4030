// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// TimestampLayout is the persisted message timestamp format (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// MaxMessageLength bounds the content of one message, in runes.
const MaxMessageLength = 2000

// Content validation errors.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
)

// Message is a chat event. Role is the author's role at send time.
type Message struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatTimestamp renders t in the persisted layout, truncated to seconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a persisted timestamp. The zero time is returned
// together with the error for malformed cells.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// IsAdmin returns true if the message was sent by an admin.
func (m *Message) IsAdmin() bool {
	return m.Role.IsAdmin()
}

// NormalizeContent trims raw and checks it is non-empty and at most
// MaxMessageLength runes.
func NormalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return content, nil
}
