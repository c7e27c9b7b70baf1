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

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/llmgate/llmgate/pkg/llms"
)

// CachedResponse wraps a completion response with cache metadata.
type CachedResponse struct {
	Response *llms.CompletionResponse `json:"response"`
	CachedAt time.Time                `json:"cached_at"`
}

// Service caches completion responses keyed by a digest of the
// request content. Store errors degrade to cache misses so an
// unavailable cache never blocks completions.
type Service struct {
	store Store
	ttl   time.Duration
}

// NewService creates a cache service over the given store.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

// cacheKey derives a deterministic key from the parts of the request
// that affect the completion. User and session identity are excluded:
// identical prompts share one entry.
type cacheKeyFields struct {
	Messages    []llms.Message `json:"messages"`
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature *float64       `json:"temperature"`
}

func cacheKey(req *llms.CompletionRequest) (string, error) {
	data, err := json.Marshal(cacheKeyFields{
		Messages:    req.Messages,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive cache key: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Lookup returns the cached response for req, or nil on a miss.
func (s *Service) Lookup(ctx context.Context, req *llms.CompletionRequest) *CachedResponse {
	key, err := cacheKey(req)
	if err != nil {
		slog.Warn("cache key derivation failed", "error", err)
		return nil
	}

	data, err := s.store.Get(ctx, key)
	if err != nil {
		if err != ErrCacheMiss {
			slog.Warn("cache lookup failed", "error", err)
		}
		return nil
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		slog.Warn("corrupt cache entry dropped", "key", key, "error", err)
		_ = s.store.Delete(ctx, key)
		return nil
	}

	return &cached
}

// Store saves resp for future identical requests.
func (s *Service) Store(ctx context.Context, req *llms.CompletionRequest, resp *llms.CompletionResponse) {
	key, err := cacheKey(req)
	if err != nil {
		slog.Warn("cache key derivation failed", "error", err)
		return
	}

	data, err := json.Marshal(CachedResponse{Response: resp, CachedAt: time.Now().UTC()})
	if err != nil {
		slog.Warn("cache encode failed", "error", err)
		return
	}

	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		slog.Warn("cache store failed", "error", err)
	}
}

// Invalidate drops the cached entry for req, if any.
func (s *Service) Invalidate(ctx context.Context, req *llms.CompletionRequest) {
	key, err := cacheKey(req)
	if err != nil {
		return
	}
	_ = s.store.Delete(ctx, key)
}
