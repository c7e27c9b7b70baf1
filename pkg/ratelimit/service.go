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
	"context"
	"fmt"
	"sync"
)

// Built-in resource types.
const (
	ResourceAPI = "api"
	ResourceGPT = "gpt"
)

// ResourceLimit is the ceiling/window pair registered for a resource type.
type ResourceLimit struct {
	MaxRequests   int
	WindowSeconds int
}

// Service is the application-level facade over a Limiter. It owns the
// resource-type configuration table and namespaces keys as
// "resourceType:key" before delegating. One limiter instance serves all
// keys and resource types; the limiter itself is the only
// synchronization boundary for usage state.
type Service struct {
	limiter Limiter

	mu     sync.RWMutex
	limits map[string]ResourceLimit
}

// NewService creates a service over the given limiter, seeded with the
// built-in "api" (100/60s) and "gpt" (10/60s) resource types.
func NewService(limiter Limiter) *Service {
	return &Service{
		limiter: limiter,
		limits: map[string]ResourceLimit{
			ResourceAPI: {MaxRequests: 100, WindowSeconds: 60},
			ResourceGPT: {MaxRequests: 10, WindowSeconds: 60},
		},
	}
}

// CheckAndUpdate checks the limit for key under resourceType's
// registered configuration, consuming one unit when allowed. An
// unregistered resource type returns ErrUnknownResourceType.
func (s *Service) CheckAndUpdate(ctx context.Context, key, resourceType string) (*Result, error) {
	limit, err := s.limitFor(resourceType)
	if err != nil {
		return nil, err
	}

	return s.limiter.CheckLimit(ctx, resourceType+":"+key, limit.MaxRequests, limit.WindowSeconds)
}

// GetQuota reports key's current usage under resourceType without
// consuming anything.
func (s *Service) GetQuota(ctx context.Context, key, resourceType string) (*Quota, error) {
	limit, err := s.limitFor(resourceType)
	if err != nil {
		return nil, err
	}

	return s.limiter.GetQuota(ctx, resourceType+":"+key, limit.MaxRequests, limit.WindowSeconds)
}

// ResetLimit clears usage for key. With a resource type it resets only
// that namespace; with an empty resource type it resets the bare key.
//
// Note the asymmetry: the bare-key form prefix-matches on "key:", which
// does NOT match namespaced keys of the form "resourceType:key:...".
// The behavior is kept as observed in the reference design rather than
// silently widened; callers that want a full wipe must reset per
// resource type.
func (s *Service) ResetLimit(ctx context.Context, key, resourceType string) error {
	if resourceType != "" {
		key = resourceType + ":" + key
	}
	return s.limiter.ResetLimit(ctx, key)
}

// UpdateLimitConfig registers or replaces the configuration for a
// resource type. Subsequent checks use the new values; usage already
// recorded under the old ceiling/window stays on its old compound key.
func (s *Service) UpdateLimitConfig(resourceType string, maxRequests, windowSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limits[resourceType] = ResourceLimit{
		MaxRequests:   maxRequests,
		WindowSeconds: windowSeconds,
	}
}

func (s *Service) limitFor(resourceType string) (ResourceLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit, ok := s.limits[resourceType]
	if !ok {
		return ResourceLimit{}, fmt.Errorf("%w: %s", ErrUnknownResourceType, resourceType)
	}
	return limit, nil
}

// GuardedFunc is an operation gated by a limiter.
type GuardedFunc func(ctx context.Context, args ...interface{}) (interface{}, error)

// KeyFunc derives the limit key from the operation's arguments.
type KeyFunc func(args ...interface{}) string

// WithRateLimiting wraps fn so each invocation first checks the limit
// for the key derived by keyFn. When allowed, fn runs and its result is
// returned. When denied and raiseOnLimit is false, the wrapper returns
// a nil result and nil error without invoking fn. When denied and
// raiseOnLimit is true, it returns a *LimitExceededError carrying the
// denying quota. Limiter and configuration errors propagate either way.
func (s *Service) WithRateLimiting(fn GuardedFunc, keyFn KeyFunc, resourceType string, raiseOnLimit bool) GuardedFunc {
	return func(ctx context.Context, args ...interface{}) (interface{}, error) {
		result, err := s.CheckAndUpdate(ctx, keyFn(args...), resourceType)
		if err != nil {
			return nil, err
		}

		if !result.Allowed {
			if raiseOnLimit {
				return nil, &LimitExceededError{Quota: result.Quota}
			}
			return nil, nil
		}

		return fn(ctx, args...)
	}
}
