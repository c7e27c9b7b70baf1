package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_EnforcesLimit(t *testing.T) {
	svc := NewService(NewMemoryLimiter())
	svc.UpdateLimitConfig("api", 2, 60)

	handler := Middleware(MiddlewareConfig{Service: svc})(newTestHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/completions", nil)
		req.Header.Set("X-User-ID", "alice")
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/completions", nil)
	req.Header.Set("X-User-ID", "alice")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestMiddleware_SeparateUsers(t *testing.T) {
	svc := NewService(NewMemoryLimiter())
	svc.UpdateLimitConfig("api", 1, 60)

	handler := Middleware(MiddlewareConfig{Service: svc})(newTestHandler())

	for _, user := range []string{"alice", "bob"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", user)
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "first request for %s", user)
	}
}

func TestMiddleware_ExcludedPaths(t *testing.T) {
	svc := NewService(NewMemoryLimiter())
	svc.UpdateLimitConfig("api", 1, 60)

	handler := Middleware(MiddlewareConfig{
		Service:       svc,
		ExcludedPaths: []string{"/health"},
	})(newTestHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-User-ID", "alice")
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

// failingLimiter simulates a backing store outage.
type failingLimiter struct{}

func (failingLimiter) CheckLimit(ctx context.Context, key string, maxRequests, windowSeconds int) (*Result, error) {
	return nil, errors.New("connection refused")
}

func (failingLimiter) GetQuota(ctx context.Context, key string, maxRequests, windowSeconds int) (*Quota, error) {
	return nil, errors.New("connection refused")
}

func (failingLimiter) ResetLimit(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func TestMiddleware_FailsClosedOnStoreError(t *testing.T) {
	svc := NewService(failingLimiter{})

	handler := Middleware(MiddlewareConfig{Service: svc})(newTestHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "alice")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware_NoServicePassesThrough(t *testing.T) {
	handler := Middleware(MiddlewareConfig{})(newTestHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
