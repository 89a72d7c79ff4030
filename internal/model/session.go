// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Session is the transient identity of one connection. It is created on
// login, dropped on logout and passed explicitly through every call that
// acts on behalf of a user.
type Session struct {
	Username      string `json:"username"`
	Role          Role   `json:"role"`
	Authenticated bool   `json:"authenticated"`
}

// NewSession returns an authenticated session for username with role.
func NewSession(username string, role Role) Session {
	return Session{Username: username, Role: role, Authenticated: true}
}

// IsAdmin returns true if the session is authenticated with the admin role.
func (s Session) IsAdmin() bool {
	return s.Authenticated && s.Role.IsAdmin()
}

// SystemSession is the identity used by operator tooling acting directly on
// the record store.
func SystemSession(name string) Session {
	return NewSession(name, RoleAdmin)
}
