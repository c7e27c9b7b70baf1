package conversation

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/llmgate/llmgate/pkg/llms"
)

// storeUnderTest runs the same assertions against every Store
// implementation.
func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()
	sessionID := uuid.NewString()

	// Unknown session reads empty, and has no metadata.
	messages, err := store.GetMessages(ctx, sessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	_, err = store.GetSession(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// First append creates the session.
	err = store.AppendMessages(ctx, sessionID, "alice", []llms.Message{
		{Role: llms.RoleUser, Content: "hello"},
		{Role: llms.RoleAssistant, Content: "hi, how can I help?"},
	})
	require.NoError(t, err)

	session, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.UserID)
	assert.False(t, session.CreatedAt.IsZero())

	err = store.AppendMessages(ctx, sessionID, "alice", []llms.Message{
		{Role: llms.RoleUser, Content: "tell me a joke"},
	})
	require.NoError(t, err)

	messages, err = store.GetMessages(ctx, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "tell me a joke", messages[2].Content)

	// Limit keeps the most recent messages in order.
	messages, err = store.GetMessages(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi, how can I help?", messages[0].Content)
	assert.Equal(t, "tell me a joke", messages[1].Content)

	// Delete removes everything.
	require.NoError(t, store.DeleteSession(ctx, sessionID))

	messages, err = store.GetMessages(ctx, sessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	_, err = store.GetSession(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestSQLStore_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// One connection keeps :memory: state across queries.
	db.SetMaxOpenConns(1)

	store, err := NewSQLStore(db, "sqlite")
	require.NoError(t, err)

	storeUnderTest(t, store)
}

func TestSQLStore_RejectsUnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = NewSQLStore(db, "oracle")
	require.Error(t, err)
}

func TestSQLStore_Rebind(t *testing.T) {
	s := &SQLStore{dialect: "postgres"}
	assert.Equal(t, "SELECT $1, $2", s.rebind("SELECT ?, ?"))

	s.dialect = "sqlite"
	assert.Equal(t, "SELECT ?, ?", s.rebind("SELECT ?, ?"))
}
