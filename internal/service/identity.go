// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/olegiv/ochat-go/internal/auth"
	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

// IdentityService manages users and bans. Writes to each table are
// serialized by a per-table lock; reads used for authentication bypass the
// cache, the roster is read through it.
type IdentityService struct {
	gw    store.Gateway
	cache *cache.Manager

	usersMu sync.Mutex
	bansMu  sync.Mutex
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(gw store.Gateway, c *cache.Manager) *IdentityService {
	return &IdentityService{gw: gw, cache: c}
}

// Register creates a user with the user role.
func (s *IdentityService) Register(ctx context.Context, username, password string) error {
	return s.RegisterWithRole(ctx, username, password, model.RoleUser)
}

// RegisterWithRole creates a user with role. Usernames are unique and
// case-sensitive.
func (s *IdentityService) RegisterWithRole(ctx context.Context, username, password string, role model.Role) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrInvalidCredentials
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.readUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == username {
			return ErrAlreadyExists
		}
	}

	digest, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.gw.AppendRow(ctx, store.TableUsers, store.Row{username, digest, string(role)}); err != nil {
		return fmt.Errorf("registering %q: %w", username, err)
	}

	s.invalidate(ctx)
	slog.Info("user registered", "category", model.EventCategoryAuth, "username", username, "role", role)
	return nil
}

// Authenticate returns the role of username if password matches and the
// user is not banned. Unknown usernames and wrong passwords both yield
// ErrNotFound.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (model.Role, error) {
	users, err := s.readUsers(ctx)
	if err != nil {
		return "", err
	}

	var (
		known bool
		match *model.User
	)
	for i := range users {
		u := &users[i]
		if u.Username != username {
			continue
		}
		known = true
		ok, err := auth.CheckPassword(password, u.PasswordDigest)
		if err != nil {
			slog.Debug("unreadable password digest", "username", username, "error", err)
			continue
		}
		if ok {
			match = u
			break
		}
	}

	if match == nil {
		if !known {
			// Keep the cost of an unknown username close to a wrong password.
			auth.DummyCheck(password)
		}
		return "", ErrNotFound
	}

	banned, err := s.IsBanned(ctx, username)
	if err != nil {
		return "", err
	}
	if banned {
		return "", ErrBanned
	}

	if auth.NeedsRehash(match.PasswordDigest) {
		slog.Info("legacy password digest in use", "category", model.EventCategoryAuth,
			"username", username, "scheme", auth.Scheme(match.PasswordDigest))
	}

	return match.Role, nil
}

// IsBanned reports whether username has a ban entry. The read is uncached.
func (s *IdentityService) IsBanned(ctx context.Context, username string) (bool, error) {
	bans, err := s.gw.ReadAllRecords(ctx, store.TableBans)
	if err != nil {
		return false, fmt.Errorf("reading bans: %w", err)
	}
	for _, b := range bans {
		if b["username"] == username {
			return true, nil
		}
	}
	return false, nil
}

// Ban adds a ban entry for username unless one exists. It returns false
// when the user was already banned.
func (s *IdentityService) Ban(ctx context.Context, by model.Session, username string) (bool, error) {
	if err := authorize(by, username); err != nil {
		return false, err
	}

	s.bansMu.Lock()
	defer s.bansMu.Unlock()

	banned, err := s.IsBanned(ctx, username)
	if err != nil {
		return false, err
	}
	if banned {
		return false, nil
	}

	if err := s.gw.AppendRow(ctx, store.TableBans, store.Row{username}); err != nil {
		return false, fmt.Errorf("banning %q: %w", username, err)
	}

	s.invalidate(ctx)
	slog.Warn("user banned", "category", model.EventCategoryModeration, "username", username, "by", by.Username)
	return true, nil
}

// Unban deletes the first ban entry for username. It returns false when
// there is none.
func (s *IdentityService) Unban(ctx context.Context, by model.Session, username string) (bool, error) {
	if err := authorize(by, username); err != nil {
		return false, err
	}

	s.bansMu.Lock()
	defer s.bansMu.Unlock()

	rows, err := s.gw.ReadAllRows(ctx, store.TableBans)
	if err != nil {
		return false, fmt.Errorf("reading bans: %w", err)
	}

	pos := 0
	for i, rec := range store.Records(rows) {
		if rec["username"] == username {
			// Records skip the header, which is row 1.
			pos = i + 2
			break
		}
	}
	if pos == 0 {
		return false, nil
	}

	if err := s.gw.DeleteRows(ctx, store.TableBans, pos, pos); err != nil {
		return false, fmt.Errorf("unbanning %q: %w", username, err)
	}

	s.invalidate(ctx)
	slog.Warn("user unbanned", "category", model.EventCategoryModeration, "username", username, "by", by.Username)
	return true, nil
}

// ListUsers returns every user with its ban status, read through the
// roster cache.
func (s *IdentityService) ListUsers(ctx context.Context) ([]model.RosterEntry, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.KeyRoster, s.cache.RosterTTL, s.fetchRoster)
}

// BannedInRoster reports whether username is listed as banned in the cached
// roster. Every ban and unban invalidates the roster, so within one process
// the answer is current; across processes it lags by at most the roster TTL.
func (s *IdentityService) BannedInRoster(ctx context.Context, username string) (bool, error) {
	roster, err := s.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range roster {
		if e.Username == username {
			return e.IsBanned, nil
		}
	}
	return false, nil
}

// UserExists reports whether username is registered. The read is uncached.
func (s *IdentityService) UserExists(ctx context.Context, username string) (bool, error) {
	users, err := s.readUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *IdentityService) fetchRoster(ctx context.Context) ([]model.RosterEntry, error) {
	users, err := s.readUsers(ctx)
	if err != nil {
		return nil, err
	}
	bans, err := s.gw.ReadAllRecords(ctx, store.TableBans)
	if err != nil {
		return nil, fmt.Errorf("reading bans: %w", err)
	}

	banned := make(map[string]bool, len(bans))
	for _, b := range bans {
		banned[b["username"]] = true
	}

	roster := make([]model.RosterEntry, 0, len(users))
	for _, u := range users {
		if strings.TrimSpace(u.Username) == "" {
			continue
		}
		roster = append(roster, model.RosterEntry{
			Username: u.Username,
			Role:     u.Role,
			IsBanned: banned[u.Username],
		})
	}
	return roster, nil
}

func (s *IdentityService) readUsers(ctx context.Context) ([]model.User, error) {
	recs, err := s.gw.ReadAllRecords(ctx, store.TableUsers)
	if err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	users := make([]model.User, 0, len(recs))
	for _, r := range recs {
		users = append(users, userFromRecord(r))
	}
	return users, nil
}

// invalidate clears the cache after a write. The write already succeeded,
// so a failed clear is only logged (by the manager) and TTL expiry bounds
// the staleness.
func (s *IdentityService) invalidate(ctx context.Context) {
	_ = s.cache.InvalidateAll(ctx)
}
