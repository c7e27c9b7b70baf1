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
	"database/sql"
	"fmt"
	"time"

	"github.com/llmgate/llmgate/pkg/llms"
)

// SQLStore persists conversations in a relational database.
// Supports postgres, mysql, and sqlite dialects.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

var _ Store = (*SQLStore)(nil)

const createConversationsTableSQL = `
CREATE TABLE IF NOT EXISTS conversations (
    id VARCHAR(255) PRIMARY KEY,
    user_id VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const createMessagesTableSQL = `
CREATE TABLE IF NOT EXISTS conversation_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    sequence_num INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_conv_messages_conversation ON conversation_messages(conversation_id, sequence_num);
`

const createMessagesTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS conversation_messages (
    id SERIAL PRIMARY KEY,
    conversation_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_conv_messages_conversation ON conversation_messages(conversation_id, sequence_num);
`

const createMessagesTableMySQL = `
CREATE TABLE IF NOT EXISTS conversation_messages (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    conversation_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);
`

// NewSQLStore creates a store over db and initializes the schema.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	messagesSQL := createMessagesTableSQL
	switch s.dialect {
	case "postgres":
		messagesSQL = createMessagesTablePostgresSQL
	case "mysql":
		messagesSQL = createMessagesTableMySQL
	}

	if _, err := s.db.ExecContext(ctx, createConversationsTableSQL); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, messagesSQL); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	return nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// AppendMessages adds messages to a session, creating it on first use.
func (s *SQLStore) AppendMessages(ctx context.Context, sessionID, userID string, messages []llms.Message) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	if len(messages) == 0 {
		return nil
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM conversations WHERE id = ?`), sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query conversation: %w", err)
	}

	if exists == 0 {
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO conversations (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`),
			sessionID, userID, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			s.rebind(`UPDATE conversations SET updated_at = ? WHERE id = ?`), now, sessionID)
		if err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}
	}

	var startSeq int64
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT COALESCE(MAX(sequence_num), 0) FROM conversation_messages WHERE conversation_id = ?`),
		sessionID).Scan(&startSeq)
	if err != nil {
		return fmt.Errorf("failed to get sequence number: %w", err)
	}

	insertQuery := s.rebind(`INSERT INTO conversation_messages (conversation_id, role, content, sequence_num, created_at) VALUES (?, ?, ?, ?, ?)`)
	for i, msg := range messages {
		_, err = tx.ExecContext(ctx, insertQuery, sessionID, msg.Role, msg.Content, startSeq+int64(i)+1, now)
		if err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetMessages returns a session's messages in order.
func (s *SQLStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]llms.Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	query := `SELECT role, content FROM conversation_messages WHERE conversation_id = ? ORDER BY sequence_num ASC`
	args := []interface{}{sessionID}

	if limit > 0 {
		// Take the most recent N, then restore chronological order.
		query = `
SELECT role, content FROM (
    SELECT role, content, sequence_num
    FROM conversation_messages
    WHERE conversation_id = ?
    ORDER BY sequence_num DESC
    LIMIT ?
) sub ORDER BY sequence_num ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []llms.Message{}
	for rows.Next() {
		var msg llms.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// GetSession returns session metadata.
func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ?`),
		sessionID).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	return &session, nil
}

// DeleteSession removes a session and its messages.
func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	// Not all backends enforce ON DELETE CASCADE without extra
	// configuration (sqlite needs foreign_keys pragma), so delete
	// messages explicitly.
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM conversation_messages WHERE conversation_id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM conversations WHERE id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}
