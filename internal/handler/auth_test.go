// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

func TestLoginForm_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp, body := b.get(RouteLogin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/login"`)
	assert.Contains(t, body, `action="/signup"`)
}

func TestChat_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp, _ := b.get(RouteRoot)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteLogin, resp.Header.Get("Location"))
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	b.login("alice", "alicepw")

	resp, body := b.get(RouteRoot)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, alice!")
	assert.Contains(t, body, "(You)")

	// A logged-in user is sent from the login form back to the chat.
	resp, _ = b.get(RouteLogin)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		want     string
	}{
		{"wrong password", "alice", "nope", "Invalid username or password."},
		{"unknown user", "nobody", "nope", "Invalid username or password."},
		{"empty password", "alice", "", "Username and password are required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.browser(t)

			resp := b.post(RouteLogin, url.Values{"username": {tt.username}, "password": {tt.password}})
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, RouteLogin, resp.Header.Get("Location"))

			_, body := b.get(RouteLogin)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestLogin_Banned(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.identity.Ban(context.Background(), model.NewSession("root", model.RoleAdmin), "alice")
	require.NoError(t, err)

	b := env.browser(t)
	resp := b.post(RouteLogin, url.Values{"username": {"alice"}, "password": {"alicepw"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteLogin, resp.Header.Get("Location"))

	_, body := b.get(RouteLogin)
	assert.Contains(t, body, "You have been banned from this chat.")
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.post(RouteSignup, url.Values{"username": {"bob"}, "password": {"bobpw"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteLogin, resp.Header.Get("Location"))

	_, body := b.get(RouteLogin)
	assert.Contains(t, body, "Signup successful! Please log in.")

	// Signup does not log in.
	resp, _ = b.get(RouteRoot)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	b.login("bob", "bobpw")

	events, err := env.events.ListEvents(context.Background(), 0)
	require.NoError(t, err)
	var messages []string
	for _, e := range events {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "User signed up")
	assert.Contains(t, messages, "User logged in")
}

func TestSignup_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	b.post(RouteSignup, url.Values{"username": {"alice"}, "password": {"other"}})
	_, body := b.get(RouteLogin)
	assert.Contains(t, body, "Username already exists.")

	// The original password still works.
	b.login("alice", "alicepw")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("alice", "alicepw")

	resp := b.post(RouteLogout, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteLogin, resp.Header.Get("Location"))

	resp, _ = b.get(RouteRoot)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestClientMetadata(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")

	meta := clientMetadata(req)
	assert.Equal(t, "203.0.113.7:5555", meta["ip"])
	assert.Equal(t, "mobile", meta["device"])
	assert.Equal(t, "iOS", meta["os"])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30 seconds", formatDuration(30*time.Second))
	assert.Equal(t, "1 minute", formatDuration(time.Minute))
	assert.Equal(t, "15 minutes", formatDuration(15*time.Minute))
}

func TestUserMessage_StoreUnavailable(t *testing.T) {
	assert.Equal(t, "The chat store is unavailable. Please try again.", userMessage(store.ErrUnavailable))
}
