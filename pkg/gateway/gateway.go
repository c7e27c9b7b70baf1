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

// Package gateway orchestrates one completion request end to end:
// rate limit check, cache lookup, prompt assembly, the provider call,
// conversation persistence, and cache fill.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/llmgate/llmgate/pkg/cache"
	"github.com/llmgate/llmgate/pkg/conversation"
	"github.com/llmgate/llmgate/pkg/llms"
	"github.com/llmgate/llmgate/pkg/prompt"
	"github.com/llmgate/llmgate/pkg/ratelimit"
)

// Gateway runs completion requests through the full pipeline.
// RateLimiter, Cache, and Conversations are optional; a nil field
// skips that stage.
type Gateway struct {
	Provider      llms.Provider
	Formatter     *prompt.Formatter
	RateLimiter   *ratelimit.Service
	Cache         *cache.Service
	Conversations conversation.Store

	// MaxHistory caps how many stored messages feed back into the
	// prompt. Zero means all of them.
	MaxHistory int
}

// SubmitRequest is one user-facing completion request.
type SubmitRequest struct {
	// UserID identifies the caller. Required.
	UserID string `json:"user_id"`

	// SessionID continues an existing conversation. Optional.
	SessionID string `json:"session_id,omitempty"`

	// Input is the user's prompt text. Required.
	Input string `json:"input"`

	// Model overrides the configured default. Optional.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the completion length. Optional.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature overrides the configured default. Optional.
	Temperature *float64 `json:"temperature,omitempty"`
}

// SubmitResult is the pipeline's outcome.
type SubmitResult struct {
	Response *llms.CompletionResponse `json:"response"`

	// Cached reports whether the response came from the cache rather
	// than the provider.
	Cached bool `json:"cached"`

	// Quota is the caller's remaining budget after this request, when
	// rate limiting is active.
	Quota *ratelimit.Quota `json:"quota,omitempty"`
}

// New creates a Gateway. Provider and Formatter are required.
func New(provider llms.Provider, formatter *prompt.Formatter) *Gateway {
	return &Gateway{
		Provider:  provider,
		Formatter: formatter,
	}
}

// Submit runs one request through the pipeline.
//
// Rate limiting happens first, before the cache: a cached answer
// still consumes quota, matching the limiter's attempt-counting
// semantics. A denial returns *ratelimit.LimitExceededError.
func (g *Gateway) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.Input == "" {
		return nil, fmt.Errorf("input is required")
	}

	result := &SubmitResult{}

	if g.RateLimiter != nil {
		check, err := g.RateLimiter.CheckAndUpdate(ctx, req.UserID, ratelimit.ResourceGPT)
		if err != nil {
			return nil, fmt.Errorf("rate limit check failed: %w", err)
		}
		result.Quota = check.Quota
		if !check.Allowed {
			return nil, &ratelimit.LimitExceededError{Quota: check.Quota}
		}
	}

	history, err := g.loadHistory(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	completionReq := llms.NewCompletionRequest(req.UserID, g.Formatter.Format(req.Input, history))
	completionReq.SessionID = req.SessionID
	completionReq.Model = req.Model
	completionReq.MaxTokens = req.MaxTokens
	completionReq.Temperature = req.Temperature

	if g.Cache != nil {
		if cached := g.Cache.Lookup(ctx, completionReq); cached != nil {
			slog.Debug("completion served from cache",
				"user_id", req.UserID, "cached_at", cached.CachedAt)
			result.Response = cached.Response
			result.Cached = true
			g.persistTurn(ctx, req, cached.Response)
			return result, nil
		}
	}

	resp, err := g.Provider.Complete(ctx, completionReq)
	if err != nil {
		return nil, err
	}

	result.Response = resp
	g.persistTurn(ctx, req, resp)

	if g.Cache != nil {
		g.Cache.Store(ctx, completionReq, resp)
	}

	return result, nil
}

// GetQuota reports the caller's current quota without consuming it.
func (g *Gateway) GetQuota(ctx context.Context, userID, resourceType string) (*ratelimit.Quota, error) {
	if g.RateLimiter == nil {
		return nil, fmt.Errorf("rate limiting is not enabled")
	}
	return g.RateLimiter.GetQuota(ctx, userID, resourceType)
}

func (g *Gateway) loadHistory(ctx context.Context, sessionID string) ([]llms.Message, error) {
	if g.Conversations == nil || sessionID == "" {
		return nil, nil
	}

	history, err := g.Conversations.GetMessages(ctx, sessionID, g.MaxHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return history, nil
}

// persistTurn appends the user turn and the completion to the
// conversation. Persistence failures are logged, not fatal: the
// completion already happened.
func (g *Gateway) persistTurn(ctx context.Context, req *SubmitRequest, resp *llms.CompletionResponse) {
	if g.Conversations == nil || req.SessionID == "" {
		return
	}

	err := g.Conversations.AppendMessages(ctx, req.SessionID, req.UserID, []llms.Message{
		{Role: llms.RoleUser, Content: req.Input},
		{Role: llms.RoleAssistant, Content: resp.Content},
	})
	if err != nil {
		slog.Error("failed to persist conversation turn",
			"session_id", req.SessionID, "error", err)
	}
}
