// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
)

// Display placeholders for missing cells.
const (
	UnknownAuthor = "Unknown"
	NoContent     = "No content"
	NotAvailable  = "N/A"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
	policy   = bluemonday.UGCPolicy()
	titler   = cases.Title(language.Und)
)

// Markdown renders chat content as sanitized HTML.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		slog.Debug("markdown conversion failed", "error", err)
		return template.HTML(policy.Sanitize(template.HTMLEscapeString(src)))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// RoleLabel returns the display label of a role, e.g. "Admin".
func RoleLabel(r model.Role) string {
	if r == "" {
		r = model.RoleUser
	}
	return titler.String(string(r))
}

// MessageView is one rendered chat line.
type MessageView struct {
	Author    string
	RoleLabel string
	IsAdmin   bool
	Content   template.HTML
	Time      string
}

// RosterView is one rendered roster line.
type RosterView struct {
	Username  string
	RoleLabel string
	IsAdmin   bool
	IsBanned  bool
	IsSelf    bool
	// CanModerate is set when the viewer may ban or unban this user.
	CanModerate bool
}

// ChatPage is the view model of the chat page and its streamed body.
type ChatPage struct {
	Viewer     model.Session
	Messages   []MessageView
	Roster     []RosterView
	RenderedAt string
	Errors     []string
}

// NewChatPage builds the view model for snap.
func NewChatPage(snap poller.Snapshot) ChatPage {
	page := ChatPage{
		Viewer:     snap.Viewer,
		Messages:   make([]MessageView, 0, len(snap.Messages)),
		Roster:     make([]RosterView, 0, len(snap.Roster)),
		RenderedAt: model.FormatTimestamp(snap.RenderedAt),
		Errors:     snap.Errors,
	}

	for _, m := range snap.Messages {
		page.Messages = append(page.Messages, messageView(m))
	}
	for _, e := range snap.Roster {
		self := e.Username == snap.Viewer.Username
		page.Roster = append(page.Roster, RosterView{
			Username:    e.Username,
			RoleLabel:   RoleLabel(e.Role),
			IsAdmin:     e.Role.IsAdmin(),
			IsBanned:    e.IsBanned,
			IsSelf:      self,
			CanModerate: snap.Viewer.IsAdmin() && !self,
		})
	}
	return page
}

func messageView(m model.Message) MessageView {
	v := MessageView{
		Author:    m.Username,
		RoleLabel: RoleLabel(m.Role),
		IsAdmin:   m.Role.IsAdmin(),
		Time:      NotAvailable,
	}
	if v.Author == "" {
		v.Author = UnknownAuthor
	}
	if m.Content == "" {
		v.Content = template.HTML(NoContent)
	} else {
		v.Content = Markdown(m.Content)
	}
	if !m.Timestamp.IsZero() {
		v.Time = model.FormatTimestamp(m.Timestamp)
	}
	return v
}
