// Copyright 2025 The llmgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
)

// IdentifierFunc extracts the rate limit key from an HTTP request.
type IdentifierFunc func(r *http.Request) string

// DefaultIdentifierFunc prefers the user ID header set by the auth
// middleware and falls back to the remote address.
func DefaultIdentifierFunc(r *http.Request) string {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return userID
	}
	return r.RemoteAddr
}

// MiddlewareConfig configures the rate limiting middleware.
type MiddlewareConfig struct {
	// Service performs the checks.
	Service *Service

	// ResourceType names the limit category to enforce. Defaults to "api".
	ResourceType string

	// IdentifierFunc extracts the key from requests. Defaults to
	// DefaultIdentifierFunc.
	IdentifierFunc IdentifierFunc

	// ExcludedPaths bypass rate limiting entirely.
	ExcludedPaths []string

	// OnLimited is called on denial. Defaults to a JSON 429 with a
	// Retry-After header.
	OnLimited func(w http.ResponseWriter, r *http.Request, result *Result)
}

// Middleware enforces the configured limit on every request. A store
// failure answers 503 rather than letting traffic through: failing open
// would defeat the limiter exactly when it is under the most pressure.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Service == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	if cfg.ResourceType == "" {
		cfg.ResourceType = ResourceAPI
	}
	if cfg.IdentifierFunc == nil {
		cfg.IdentifierFunc = DefaultIdentifierFunc
	}
	if cfg.OnLimited == nil {
		cfg.OnLimited = defaultOnLimited
	}

	excluded := make(map[string]bool, len(cfg.ExcludedPaths))
	for _, path := range cfg.ExcludedPaths {
		excluded[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.IdentifierFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Service.CheckAndUpdate(r.Context(), key, cfg.ResourceType)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "key", key)
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}

			setRateLimitHeaders(w, result.Quota)

			if !result.Allowed {
				cfg.OnLimited(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func defaultOnLimited(w http.ResponseWriter, r *http.Request, result *Result) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.Quota)))
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "rate_limit_exceeded",
			"message": (&LimitExceededError{Quota: result.Quota}).Error(),
		},
		"retry_after_seconds": retryAfterSeconds(result.Quota),
		"quota":               result.Quota,
	})
}

func setRateLimitHeaders(w http.ResponseWriter, quota *Quota) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining()))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(quota.ResetAt.Unix(), 10))
}

func retryAfterSeconds(quota *Quota) int {
	return int(math.Ceil(quota.ResetIn().Seconds()))
}
