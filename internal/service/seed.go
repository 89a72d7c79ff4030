// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/olegiv/ochat-go/internal/model"
)

// EnsureAdmin creates an admin account when username is set and not yet
// registered. It returns true if the account was created.
func EnsureAdmin(ctx context.Context, identity *IdentityService, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	if password == "" {
		return false, ErrInvalidCredentials
	}

	err := identity.RegisterWithRole(ctx, username, password, model.RoleAdmin)
	if errors.Is(err, ErrAlreadyExists) {
		slog.Debug("bootstrap admin already exists", "username", username)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	slog.Info("bootstrap admin created", "category", model.EventCategorySystem, "username", username)
	return true, nil
}
