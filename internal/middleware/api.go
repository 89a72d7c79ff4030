// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/olegiv/ochat-go/internal/auth"
)

// APIError represents a JSON error response for the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "Missing Authorization header"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "Invalid Authorization header format. Use: Bearer <token>"
	}
	if parts[1] == "" {
		return "", "Token is empty"
	}
	return parts[1], ""
}

// BearerAuth creates middleware that authenticates API requests with a
// signed token issued by the token endpoint. Tokens of banned users are
// refused even before they expire.
func BearerAuth(secret []byte, bans BanChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, problem := bearerToken(r)
			if problem != "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", problem, nil)
				return
			}

			sess, err := auth.ParseToken(raw, secret)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
				return
			}

			if bans != nil {
				banned, err := bans.BannedInRoster(r.Context(), sess.Username)
				if err != nil {
					slog.Error("ban check failed", "username", sess.Username, "error", err)
					WriteAPIError(w, http.StatusServiceUnavailable, "store_unavailable", "Record store unavailable", nil)
					return
				}
				if banned {
					WriteAPIError(w, http.StatusForbidden, "banned", "User is banned", nil)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireAPIAdmin creates middleware that requires an admin token.
// It must run after BearerAuth.
func RequireAPIAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r)
		if !sess.Authenticated {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Token required", nil)
			return
		}
		if !sess.IsAdmin() {
			slog.Warn("api access denied", "username", sess.Username, "path", r.URL.Path)
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// newLimiterCache creates a new limiter cache.
func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// SendRateLimit creates middleware that limits how fast each authenticated
// user can post. Anonymous requests pass through.
func SendRateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiters := newLimiterCache[string](rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r)
			if !sess.Authenticated || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if !limiters.get(sess.Username).Allow() {
				slog.Warn("send rate limit exceeded", "username", sess.Username)
				if strings.HasPrefix(r.URL.Path, "/api/") {
					WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
				} else {
					http.Error(w, "Too many messages. Please wait a moment.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GlobalRateLimiter provides a per-IP rate limiter for unauthenticated requests.
type GlobalRateLimiter struct {
	cache *limiterCache[string]
}

// NewGlobalRateLimiter creates a new global rate limiter.
func NewGlobalRateLimiter(rps float64, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{
		cache: newLimiterCache[string](rps, burst),
	}
}

// Middleware returns the rate limiting middleware for API routes (returns JSON errors).
func (rl *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			if !rl.cache.get(ip).Allow() {
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
