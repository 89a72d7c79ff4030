// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"time"

	"github.com/olegiv/ochat-go/internal/model"
)

// EventRow encodes an audit event in the events table layout.
func EventRow(e model.Event) Row {
	metadata := e.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	return Row{
		e.ID,
		e.Level,
		e.Category,
		e.Message,
		e.Username,
		metadata,
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EventFromRecord decodes an events table record. A malformed created_at
// cell yields the zero time.
func EventFromRecord(r Record) model.Event {
	createdAt, _ := time.Parse(time.RFC3339, r["created_at"])
	return model.Event{
		ID:        r["id"],
		Level:     r["level"],
		Category:  r["category"],
		Message:   r["message"],
		Username:  r["username"],
		Metadata:  r["metadata"],
		CreatedAt: createdAt,
	}
}
