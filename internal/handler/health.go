// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/version"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	healthCheckTimeout = 3 * time.Second
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	store     Pinger
	cache     Pinger
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(store, cache Pinger, v version.Info) *HealthHandler {
	return &HealthHandler{
		store:     store,
		cache:     cache,
		version:   v,
		startTime: time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for anonymous callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the full health response, shown to admins.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Commit    string           `json:"commit,omitempty"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
}

// Health handles GET /health. The store decides healthy or not; an
// unreachable cache only degrades the status since the services fall back
// to reading the store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	storeCheck := ping(r.Context(), h.store)
	checks := map[string]Check{"store": storeCheck}
	if h.cache != nil {
		checks["cache"] = ping(r.Context(), h.cache)
	}

	overall := statusHealthy
	code := http.StatusOK
	switch {
	case storeCheck.Status != statusHealthy:
		overall = statusUnhealthy
		code = http.StatusServiceUnavailable
	case checks["cache"].Status == statusUnhealthy:
		overall = statusDegraded
	}

	if !middleware.GetSession(r).IsAdmin() {
		writeJSON(w, code, HealthStatusPublic{Status: overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.Version,
		Commit:    h.version.GitCommit,
		Checks:    checks,
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
		}
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. Only the store is checked.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	check := ping(r.Context(), h.store)
	if check.Status == statusHealthy {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	resp := map[string]string{"status": "not_ready"}
	if middleware.GetSession(r).IsAdmin() {
		resp["message"] = check.Message
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

func ping(ctx context.Context, p Pinger) Check {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error()}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).Round(time.Microsecond).String()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
