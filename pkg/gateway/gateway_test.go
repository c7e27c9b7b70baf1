package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgate/llmgate/pkg/cache"
	"github.com/llmgate/llmgate/pkg/conversation"
	"github.com/llmgate/llmgate/pkg/llms"
	"github.com/llmgate/llmgate/pkg/prompt"
	"github.com/llmgate/llmgate/pkg/ratelimit"
)

// fakeProvider returns canned responses and records calls.
type fakeProvider struct {
	calls    int
	lastReq  *llms.CompletionRequest
	response string
}

func (p *fakeProvider) Complete(ctx context.Context, req *llms.CompletionRequest) (*llms.CompletionResponse, error) {
	p.calls++
	p.lastReq = req
	resp := llms.NewCompletionResponse(req.ID, p.response, "fake-model")
	resp.Usage = llms.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	return resp, nil
}

func (p *fakeProvider) Model() string { return "fake-model" }

func newGateway(provider llms.Provider) *Gateway {
	return New(provider, prompt.New(prompt.WithSystemPrompt("You are helpful.")))
}

func TestGateway_Submit(t *testing.T) {
	provider := &fakeProvider{response: "42"}
	gw := newGateway(provider)

	result, err := gw.Submit(context.Background(), &SubmitRequest{
		UserID: "alice",
		Input:  "meaning of life?",
	})
	require.NoError(t, err)

	assert.Equal(t, "42", result.Response.Content)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, provider.calls)

	// The formatter's system prompt reaches the provider.
	require.NotNil(t, provider.lastReq)
	require.Len(t, provider.lastReq.Messages, 2)
	assert.Equal(t, llms.RoleSystem, provider.lastReq.Messages[0].Role)
}

func TestGateway_Validation(t *testing.T) {
	gw := newGateway(&fakeProvider{response: "x"})

	_, err := gw.Submit(context.Background(), &SubmitRequest{Input: "hi"})
	require.Error(t, err)

	_, err = gw.Submit(context.Background(), &SubmitRequest{UserID: "alice"})
	require.Error(t, err)
}

func TestGateway_RateLimited(t *testing.T) {
	provider := &fakeProvider{response: "x"}
	gw := newGateway(provider)

	svc := ratelimit.NewService(ratelimit.NewMemoryLimiter())
	svc.UpdateLimitConfig(ratelimit.ResourceGPT, 1, 60)
	gw.RateLimiter = svc

	ctx := context.Background()

	result, err := gw.Submit(ctx, &SubmitRequest{UserID: "alice", Input: "one"})
	require.NoError(t, err)
	require.NotNil(t, result.Quota)
	assert.Equal(t, 0, result.Quota.Remaining())

	_, err = gw.Submit(ctx, &SubmitRequest{UserID: "alice", Input: "two"})
	require.Error(t, err)
	assert.True(t, ratelimit.IsLimitExceeded(err))
	assert.Equal(t, 1, provider.calls)

	// Another user is unaffected.
	_, err = gw.Submit(ctx, &SubmitRequest{UserID: "bob", Input: "one"})
	require.NoError(t, err)
}

func TestGateway_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{response: "cached answer"}
	gw := newGateway(provider)
	gw.Cache = cache.NewService(cache.NewMemoryStore(), time.Minute)

	ctx := context.Background()

	first, err := gw.Submit(ctx, &SubmitRequest{UserID: "alice", Input: "same question"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := gw.Submit(ctx, &SubmitRequest{UserID: "bob", Input: "same question"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "cached answer", second.Response.Content)
	assert.Equal(t, 1, provider.calls)
}

func TestGateway_CachedRequestsStillConsumeQuota(t *testing.T) {
	provider := &fakeProvider{response: "x"}
	gw := newGateway(provider)
	gw.Cache = cache.NewService(cache.NewMemoryStore(), time.Minute)

	svc := ratelimit.NewService(ratelimit.NewMemoryLimiter())
	svc.UpdateLimitConfig(ratelimit.ResourceGPT, 2, 60)
	gw.RateLimiter = svc

	ctx := context.Background()

	_, err := gw.Submit(ctx, &SubmitRequest{UserID: "alice", Input: "q"})
	require.NoError(t, err)

	result, err := gw.Submit(ctx, &SubmitRequest{UserID: "alice", Input: "q"})
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, 0, result.Quota.Remaining())

	_, err = gw.Submit(ctx, &SubmitRequest{UserID: "alice", Input: "q"})
	assert.True(t, ratelimit.IsLimitExceeded(err))
}

func TestGateway_ConversationHistory(t *testing.T) {
	provider := &fakeProvider{response: "answer"}
	gw := newGateway(provider)
	gw.Conversations = conversation.NewMemoryStore()

	ctx := context.Background()

	_, err := gw.Submit(ctx, &SubmitRequest{UserID: "alice", SessionID: "s1", Input: "first"})
	require.NoError(t, err)

	_, err = gw.Submit(ctx, &SubmitRequest{UserID: "alice", SessionID: "s1", Input: "second"})
	require.NoError(t, err)

	// Second request includes the first turn as history:
	// system + user(first) + assistant(answer) + user(second).
	require.Len(t, provider.lastReq.Messages, 4)
	assert.Equal(t, "first", provider.lastReq.Messages[1].Content)
	assert.Equal(t, "answer", provider.lastReq.Messages[2].Content)
	assert.Equal(t, "second", provider.lastReq.Messages[3].Content)

	// Both turns persisted.
	messages, err := gw.Conversations.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestGateway_GetQuota(t *testing.T) {
	gw := newGateway(&fakeProvider{response: "x"})

	_, err := gw.GetQuota(context.Background(), "alice", ratelimit.ResourceGPT)
	require.Error(t, err)

	gw.RateLimiter = ratelimit.NewService(ratelimit.NewMemoryLimiter())
	quota, err := gw.GetQuota(context.Background(), "alice", ratelimit.ResourceGPT)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)
}
