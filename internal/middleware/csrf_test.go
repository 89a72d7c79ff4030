// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

func TestDefaultCSRFConfig(t *testing.T) {
	dev := DefaultCSRFConfig(testCSRFKey, true, "0.0.0.0:9000")
	if len(dev.TrustedOrigins) != 3 || dev.TrustedOrigins[0] != "0.0.0.0:9000" {
		t.Errorf("dev TrustedOrigins = %v", dev.TrustedOrigins)
	}
	for _, origin := range dev.TrustedOrigins {
		if strings.HasPrefix(origin, "http") {
			t.Errorf("TrustedOrigin should be host:port, not a URL: %s", origin)
		}
	}

	prod := DefaultCSRFConfig(testCSRFKey, false, "0.0.0.0:9000")
	if len(prod.TrustedOrigins) != 0 {
		t.Errorf("production should trust no extra origins, got %v", prod.TrustedOrigins)
	}
}

func csrfRequest(method, path, fetchSite string) *http.Request {
	req := httptest.NewRequest(method, "http://chat.example"+path, nil)
	if fetchSite != "" {
		req.Header.Set("Sec-Fetch-Site", fetchSite)
	}
	return req
}

func TestCSRF_CrossSitePostRejected(t *testing.T) {
	handler := CSRF(DefaultCSRFConfig(testCSRFKey, false, ""))(okHandler())

	tests := []struct {
		name      string
		method    string
		fetchSite string
		want      int
	}{
		{"same-origin post", http.MethodPost, "same-origin", http.StatusOK},
		{"cross-site post", http.MethodPost, "cross-site", http.StatusForbidden},
		{"cross-site get", http.MethodGet, "cross-site", http.StatusOK},
		{"non-browser post", http.MethodPost, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, csrfRequest(tt.method, "/messages", tt.fetchSite))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCSRF_CustomErrorHandler(t *testing.T) {
	cfg := DefaultCSRFConfig(testCSRFKey, false, "")
	cfg.ErrorHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CSRF(cfg)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, csrfRequest(http.MethodPost, "/messages", "cross-site"))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestSkipCSRFPrefix(t *testing.T) {
	handler := SkipCSRFPrefix("/api/")(CSRF(DefaultCSRFConfig(testCSRFKey, false, ""))(okHandler()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, csrfRequest(http.MethodPost, "/api/v1/messages", "cross-site"))
	if rec.Code != http.StatusOK {
		t.Errorf("api status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, csrfRequest(http.MethodPost, "/messages", "cross-site"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("form status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
