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

// ConversationsConfig configures conversation persistence.
type ConversationsConfig struct {
	// Backend specifies the store: "memory" (default) or "sql".
	Backend string `yaml:"backend,omitempty"`

	// Database references a database defined in the databases section.
	// Required when Backend is "sql".
	Database string `yaml:"database,omitempty"`

	// MaxHistory caps the number of messages kept per conversation.
	// Zero means unlimited.
	MaxHistory int `yaml:"max_history,omitempty"`
}

// SetDefaults applies default values to ConversationsConfig.
func (c *ConversationsConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks the conversations configuration.
func (c *ConversationsConfig) Validate() error {
	switch c.Backend {
	case "memory", "sql":
	default:
		return fmt.Errorf("invalid backend %q (valid: memory, sql)", c.Backend)
	}

	if c.Backend == "sql" && c.Database == "" {
		return fmt.Errorf("database reference is required when backend is sql")
	}
	if c.Database != "" && c.Backend != "sql" {
		return fmt.Errorf("database reference requires backend to be sql")
	}

	if c.MaxHistory < 0 {
		return fmt.Errorf("max_history must be non-negative")
	}

	return nil
}

// IsSQL returns true if using SQL conversation storage.
func (c *ConversationsConfig) IsSQL() bool {
	return c != nil && c.Backend == "sql"
}
