// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ochat-go/internal/auth"
	"github.com/olegiv/ochat-go/internal/model"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func bearer(t *testing.T, sess model.Session, validity time.Duration) string {
	t.Helper()
	token, err := auth.GenerateToken(sess, testSecret, validity)
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	return apiErr
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, http.StatusBadRequest, "bad_request", "nope", map[string]string{"field": "content"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, "bad_request", apiErr.Error.Code)
	assert.Equal(t, "content", apiErr.Error.Details["field"])
}

func TestBearerAuth(t *testing.T) {
	bans := &stubBans{banned: map[string]bool{"mallory": true}}
	handler := BearerAuth(testSecret, bans)(whoAmI())

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
		{"expired token", bearer(t, model.NewSession("alice", model.RoleUser), -time.Minute), http.StatusUnauthorized, ""},
		{"banned user", bearer(t, model.NewSession("mallory", model.RoleUser), time.Minute), http.StatusForbidden, ""},
		{"valid token", bearer(t, model.NewSession("alice", model.RoleAdmin), time.Minute), http.StatusOK, "alice|admin"},
		{"lowercase scheme", "bearer " + bearer(t, model.NewSession("bob", model.RoleUser), time.Minute)[7:], http.StatusOK, "bob|user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestBearerAuth_StoreDown(t *testing.T) {
	handler := BearerAuth(testSecret, &stubBans{err: errors.New("down")})(whoAmI())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	req.Header.Set("Authorization", bearer(t, model.NewSession("alice", model.RoleUser), time.Minute))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store_unavailable", decodeAPIError(t, rec).Error.Code)
}

func TestRequireAPIAdmin(t *testing.T) {
	handler := RequireAPIAdmin(whoAmI())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(model.NewSession("alice", model.RoleUser), http.MethodDelete, "/api/v1/messages"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(model.Session{}, http.MethodDelete, "/api/v1/messages"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(model.NewSession("root", model.RoleAdmin), http.MethodDelete, "/api/v1/messages"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendRateLimit(t *testing.T) {
	handler := SendRateLimit(0.001, 1)(okHandler())
	alice := model.NewSession("alice", model.RoleUser)

	send := func(sess model.Session, path string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(sess, http.MethodPost, path))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(alice, "/messages"))
	assert.Equal(t, http.StatusTooManyRequests, send(alice, "/messages"))
	assert.Equal(t, http.StatusTooManyRequests, send(alice, "/api/v1/messages"))
	assert.Equal(t, http.StatusOK, send(model.NewSession("bob", model.RoleUser), "/messages"))
	assert.Equal(t, http.StatusOK, send(model.Session{}, "/messages"), "anonymous requests are not limited here")
}

func TestGlobalRateLimiter(t *testing.T) {
	handler := NewGlobalRateLimiter(0.001, 1).Middleware()(okHandler())

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/token", nil)
		req.RemoteAddr = "10.2.2.2:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestLimiterCache_ClearIfExceeds(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	lc.get("a")
	lc.get("b")

	assert.False(t, lc.clearIfExceeds(2))
	lc.get("c")
	assert.True(t, lc.clearIfExceeds(2))
	assert.Empty(t, lc.limiters)
}
