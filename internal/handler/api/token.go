// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/ochat-go/internal/auth"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/service"
)

// TokenRequest is the body of POST /api/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt time.Time  `json:"expires_at"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
}

// IssueToken handles POST /api/token. It checks credentials exactly like the
// login form and returns a short-lived bearer token.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteServiceError(w, service.ErrInvalidCredentials)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsLocked(req.Username); locked {
			WriteError(w, http.StatusTooManyRequests, "locked",
				fmt.Sprintf("Too many failed attempts. Retry in %s.", remaining.Round(time.Second)), nil)
			return
		}
	}

	role, err := h.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrBanned) {
			slog.Warn("api token refused", "category", model.EventCategoryAuth,
				"username", req.Username, "error", err)
			if errors.Is(err, service.ErrNotFound) && h.loginProtection != nil {
				h.loginProtection.RecordFailedAttempt(req.Username)
			}
		}
		WriteServiceError(w, err)
		return
	}
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(req.Username)
	}

	sess := model.NewSession(req.Username, role)
	token, err := auth.GenerateToken(sess, h.secret, h.tokenTTL)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	slog.Info("api token issued", "username", sess.Username, "ttl", h.tokenTTL.String())
	WriteCreated(w, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(h.tokenTTL).UTC(),
		Username:  sess.Username,
		Role:      sess.Role,
	})
}
