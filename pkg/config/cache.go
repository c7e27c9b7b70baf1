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

// CacheConfig configures the completion response cache.
type CacheConfig struct {
	// Enabled toggles response caching. Default: true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Backend selects the cache store: "memory" or "redis".
	Backend string `yaml:"backend,omitempty"`

	// TTLSeconds is how long cached responses stay fresh.
	// Default: 3600.
	TTLSeconds int `yaml:"ttl_seconds,omitempty"`

	// Prefix namespaces cache keys in shared stores.
	// Default: "llmgate:cache:".
	Prefix string `yaml:"prefix,omitempty"`
}

// SetDefaults applies default values to CacheConfig.
func (c *CacheConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.TTLSeconds == 0 {
		c.TTLSeconds = 3600
	}
	if c.Prefix == "" {
		c.Prefix = "llmgate:cache:"
	}
}

// Validate checks the cache configuration.
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown backend: %s (must be 'memory' or 'redis')", c.Backend)
	}

	if c.TTLSeconds < 0 {
		return fmt.Errorf("ttl_seconds must be non-negative")
	}

	return nil
}

// IsEnabled reports whether response caching is switched on.
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
