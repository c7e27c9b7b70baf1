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

package config

import "fmt"

// RateLimitConfig configures the rate limiter core.
type RateLimitConfig struct {
	// Enabled toggles rate limiting globally. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Backend selects the limiter store: "memory" or "redis".
	Backend string `yaml:"backend,omitempty"`

	// Resources overrides or extends the built-in resource types.
	Resources map[string]ResourceLimitConfig `yaml:"resources,omitempty"`
}

// ResourceLimitConfig is one resource type's quota shape.
type ResourceLimitConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// SetDefaults applies defaults.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks the configuration.
func (c *RateLimitConfig) Validate() error {
	switch c.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown backend: %s (must be 'memory' or 'redis')", c.Backend)
	}

	for name, res := range c.Resources {
		if res.MaxRequests <= 0 {
			return fmt.Errorf("resource %s: max_requests must be positive", name)
		}
		if res.WindowSeconds <= 0 {
			return fmt.Errorf("resource %s: window_seconds must be positive", name)
		}
	}

	return nil
}

// IsEnabled reports whether rate limiting is switched on.
func (c *RateLimitConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
