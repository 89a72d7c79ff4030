// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the chat web UI.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/service"
	"github.com/olegiv/ochat-go/internal/store"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, flashTypeError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, flashTypeSuccess)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// userMessage maps a service error to the text shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		return "Username already exists."
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Username and password are required."
	case errors.Is(err, service.ErrNotFound):
		return "Invalid username or password."
	case errors.Is(err, service.ErrBanned):
		return "You have been banned from this chat."
	case errors.Is(err, service.ErrForbidden):
		return "Only admins can do that."
	case errors.Is(err, service.ErrSelfModeration):
		return "You cannot moderate yourself."
	case errors.Is(err, service.ErrUnauthenticated):
		return "Please log in first."
	case errors.Is(err, store.ErrUnavailable):
		return "The chat store is unavailable. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
