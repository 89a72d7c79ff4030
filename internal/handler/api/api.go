// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API of the chat.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/service"
	"github.com/olegiv/ochat-go/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	identity        *service.IdentityService
	messages        *service.MessageService
	view            poller.Source
	hub             *poller.Hub
	secret          []byte
	tokenTTL        time.Duration
	loginProtection *middleware.LoginProtection
}

// Config holds what NewHandler needs.
type Config struct {
	Identity *service.IdentityService
	Messages *service.MessageService
	View     poller.Source
	Hub      *poller.Hub
	// Secret signs the bearer tokens.
	Secret   []byte
	TokenTTL time.Duration
	// LoginProtection is optional.
	LoginProtection *middleware.LoginProtection
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	return &Handler{
		identity:        cfg.Identity,
		messages:        cfg.Messages,
		view:            cfg.View,
		hub:             cfg.Hub,
		secret:          cfg.Secret,
		tokenTTL:        cfg.TokenTTL,
		loginProtection: cfg.LoginProtection,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	middleware.WriteAPIError(w, statusCode, code, message, details)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteServiceError maps a service error to its status code and writes it.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteBadRequest(w, err.Error(), nil)
	case errors.Is(err, service.ErrAlreadyExists):
		WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		WriteUnauthorized(w, err.Error())
	case errors.Is(err, service.ErrBanned):
		WriteError(w, http.StatusForbidden, "banned", err.Error(), nil)
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrSelfModeration):
		WriteForbidden(w, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		WriteUnauthorized(w, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "Record store unavailable", nil)
	default:
		slog.Error("api request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal error", nil)
	}
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}
