// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "errors"

// Service errors. Store failures are returned wrapped and match
// store.ErrUnavailable.
var (
	ErrAlreadyExists      = errors.New("username already exists")
	ErrNotFound           = errors.New("invalid username or password")
	ErrBanned             = errors.New("user is banned")
	ErrInvalidCredentials = errors.New("username and password are required")
	ErrForbidden          = errors.New("admin role required")
	ErrSelfModeration     = errors.New("cannot moderate yourself")
	ErrUnauthenticated    = errors.New("not logged in")
)
