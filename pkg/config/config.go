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

// Package config defines llmgate's YAML configuration surface.
//
// Every section follows the same discipline: a struct with yaml tags, a
// SetDefaults method applying defaults in place, and a Validate method
// returning the first configuration mistake it finds. Load reads a
// file, expands ${ENV_VAR} references, applies defaults, and validates.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	// Server configures the HTTP API surface.
	Server *ServerConfig `yaml:"server,omitempty"`

	// Logger configures structured logging.
	Logger *LoggerConfig `yaml:"logger,omitempty"`

	// LLM configures the completion provider.
	LLM *LLMConfig `yaml:"llm,omitempty"`

	// Redis configures the shared Redis connection used by the redis
	// rate limit backend and the redis cache backend.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// Databases defines named SQL databases referenced by other
	// sections.
	Databases map[string]*DatabaseConfig `yaml:"databases,omitempty"`

	// RateLimiting configures the rate limiter core.
	RateLimiting *RateLimitConfig `yaml:"rate_limiting,omitempty"`

	// Cache configures the completion response cache.
	Cache *CacheConfig `yaml:"cache,omitempty"`

	// Conversations configures conversation persistence.
	Conversations *ConversationsConfig `yaml:"conversations,omitempty"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, expanding environment variable references
// before unmarshaling so secrets never live in the file itself.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expanded, err := yaml.Marshal(ExpandEnvVarsInData(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to expand config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a ready-to-run configuration with every section at
// its defaults (memory backends, no auth).
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies defaults to every section, creating absent ones.
func (c *Config) SetDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	c.Server.SetDefaults()

	if c.Logger == nil {
		c.Logger = &LoggerConfig{}
	}
	c.Logger.SetDefaults()

	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	c.LLM.SetDefaults()

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	c.Redis.SetDefaults()

	for _, db := range c.Databases {
		db.SetDefaults()
	}

	if c.RateLimiting == nil {
		c.RateLimiting = &RateLimitConfig{}
	}
	c.RateLimiting.SetDefaults()

	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	c.Cache.SetDefaults()

	if c.Conversations == nil {
		c.Conversations = &ConversationsConfig{}
	}
	c.Conversations.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	for name, db := range c.Databases {
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}
	if err := c.RateLimiting.Validate(); err != nil {
		return fmt.Errorf("rate_limiting: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Conversations.Validate(); err != nil {
		return fmt.Errorf("conversations: %w", err)
	}

	// Cross-section references.
	if c.Conversations.Backend == "sql" {
		if _, ok := c.Databases[c.Conversations.Database]; !ok {
			return fmt.Errorf("conversations.database %q not defined in databases", c.Conversations.Database)
		}
	}

	return nil
}

// GetDatabase returns the named database configuration.
func (c *Config) GetDatabase(name string) (*DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok
}

// BoolPtr is a helper for optional boolean fields.
func BoolPtr(b bool) *bool {
	return &b
}
