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

// Package conversation persists chat history per session, so
// follow-up completions carry context.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/llmgate/llmgate/pkg/llms"
)

// ErrSessionNotFound indicates the session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is conversation metadata.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists conversations.
type Store interface {
	// AppendMessages adds messages to a session, creating the session
	// on first use.
	AppendMessages(ctx context.Context, sessionID, userID string, messages []llms.Message) error

	// GetMessages returns a session's messages in order. When limit is
	// positive, only the most recent limit messages are returned.
	// An unknown session yields an empty slice, not an error.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]llms.Message, error)

	// GetSession returns session metadata, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, sessionID string) error
}
