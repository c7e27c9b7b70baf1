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
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/llmgate/llmgate/pkg/config"
)

// NewLimiterFromConfig selects the limiter backend from configuration.
// The redis backend requires an initialized client; the wiring layer
// supplies it.
//
// Example config:
//
//	rate_limiting:
//	  backend: redis
//	  resources:
//	    gpt:
//	      max_requests: 10
//	      window_seconds: 60
func NewLimiterFromConfig(cfg *config.RateLimitConfig, rdb *redis.Client) (Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}

	switch cfg.Backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis client is required for redis rate limit backend")
		}
		return NewRedisLimiter(rdb), nil
	case "memory", "":
		return NewMemoryLimiter(), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}

// NewServiceFromConfig builds the facade over limiter, overlaying any
// configured resource types on the built-in defaults.
func NewServiceFromConfig(cfg *config.RateLimitConfig, limiter Limiter) *Service {
	svc := NewService(limiter)

	for name, res := range cfg.Resources {
		svc.UpdateLimitConfig(name, res.MaxRequests, res.WindowSeconds)
	}

	return svc
}
