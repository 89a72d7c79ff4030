// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

// userFromRecord decodes a users row. Rows written before the digest column
// was renamed keep their digest under "password".
func userFromRecord(r store.Record) model.User {
	return model.User{
		Username:       r["username"],
		PasswordDigest: r.Get("password_digest", "password"),
		Role:           model.ParseRole(r["role"]),
	}
}

// messageFromRecord decodes a messages row. An unparsable timestamp leaves
// the zero time.
func messageFromRecord(r store.Record) model.Message {
	ts, _ := model.ParseTimestamp(r["timestamp"])
	return model.Message{
		Username:  r["username"],
		Role:      model.ParseRole(r["role"]),
		Content:   r["content"],
		Timestamp: ts,
	}
}

func messageRow(m model.Message) store.Row {
	return store.Row{m.Username, string(m.Role), m.Content, model.FormatTimestamp(m.Timestamp)}
}

// authorize checks that by may moderate target.
func authorize(by model.Session, target string) error {
	if !by.IsAdmin() {
		return ErrForbidden
	}
	if by.Username == target {
		return ErrSelfModeration
	}
	return nil
}
