// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the record store, the
// services and the presentation layer: users, bans, messages, sessions and
// audit events.
package model

// Role is the role of a chat user.
type Role string

// Known roles. Any other value is kept verbatim but treated as non-admin.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsAdmin returns true if the role is the admin role.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// ParseRole maps a stored role cell to a Role. Blank cells default to RoleUser.
func ParseRole(s string) Role {
	if s == "" {
		return RoleUser
	}
	return Role(s)
}

// User is a registered chat account.
type User struct {
	Username       string `json:"username"`
	PasswordDigest string `json:"-"` // Never expose in JSON
	Role           Role   `json:"role"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role.IsAdmin()
}

// BanEntry marks a banned username. Its presence is the ban.
type BanEntry struct {
	Username string `json:"username"`
}

// RosterEntry is one line of the user list: a user fused with its ban status.
type RosterEntry struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	IsBanned bool   `json:"is_banned"`
}
