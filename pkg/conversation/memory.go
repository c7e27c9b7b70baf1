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

package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/llmgate/llmgate/pkg/llms"
)

// MemoryStore keeps conversations in process memory. Useful for
// single-node deployments and tests; history is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	meta     Session
	messages []llms.Message
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
	}
}

// AppendMessages adds messages to a session, creating it on first use.
func (s *MemoryStore) AppendMessages(ctx context.Context, sessionID, userID string, messages []llms.Message) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session, exists := s.sessions[sessionID]
	if !exists {
		session = &memorySession{
			meta: Session{ID: sessionID, UserID: userID, CreatedAt: now},
		}
		s.sessions[sessionID] = session
	}

	session.messages = append(session.messages, messages...)
	session.meta.UpdatedAt = now

	return nil
}

// GetMessages returns a session's messages in order.
func (s *MemoryStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]llms.Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return []llms.Message{}, nil
	}

	messages := session.messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	out := make([]llms.Message, len(messages))
	copy(out, messages)
	return out, nil
}

// GetSession returns session metadata.
func (s *MemoryStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	meta := session.meta
	return &meta, nil
}

// DeleteSession removes a session and its messages.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
