package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgate/llmgate/pkg/llms"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	_, err = store.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	store.now = func() time.Time { return now.Add(61 * time.Second) }

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting an absent key is fine.
	require.NoError(t, store.Delete(ctx, "k"))
}

func newRequest(content string) *llms.CompletionRequest {
	return llms.NewCompletionRequest("alice", []llms.Message{{Role: llms.RoleUser, Content: content}})
}

func TestService_RoundTrip(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	req := newRequest("what is the capital of France?")
	require.Nil(t, svc.Lookup(ctx, req))

	resp := llms.NewCompletionResponse(req.ID, "Paris", "gpt-4o-mini")
	svc.Store(ctx, req, resp)

	cached := svc.Lookup(ctx, req)
	require.NotNil(t, cached)
	assert.Equal(t, "Paris", cached.Response.Content)
	assert.False(t, cached.CachedAt.IsZero())
}

func TestService_KeyIgnoresIdentity(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	req := newRequest("hello")
	svc.Store(ctx, req, llms.NewCompletionResponse(req.ID, "hi", "gpt-4o-mini"))

	// Same content from a different user and request ID hits the
	// same entry.
	other := llms.NewCompletionRequest("bob", req.Messages)
	cached := svc.Lookup(ctx, other)
	require.NotNil(t, cached)
	assert.Equal(t, "hi", cached.Response.Content)
}

func TestService_KeySensitiveToContent(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	req := newRequest("hello")
	svc.Store(ctx, req, llms.NewCompletionResponse(req.ID, "hi", "gpt-4o-mini"))

	assert.Nil(t, svc.Lookup(ctx, newRequest("goodbye")))

	withModel := newRequest("hello")
	withModel.Model = "gpt-4o"
	assert.Nil(t, svc.Lookup(ctx, withModel))
}

func TestService_Invalidate(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	req := newRequest("hello")
	svc.Store(ctx, req, llms.NewCompletionResponse(req.ID, "hi", "gpt-4o-mini"))
	svc.Invalidate(ctx, req)

	assert.Nil(t, svc.Lookup(ctx, req))
}
