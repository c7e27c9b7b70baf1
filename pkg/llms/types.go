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

// Package llms defines the completion request/response model and the
// provider abstraction for upstream LLM APIs.
package llms

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is a validated request bound for an LLM provider.
type CompletionRequest struct {
	// ID uniquely identifies this request.
	ID string `json:"id"`

	// UserID identifies the caller for rate limiting and auditing.
	UserID string `json:"user_id"`

	// SessionID groups requests into a conversation. Optional.
	SessionID string `json:"session_id,omitempty"`

	// Messages is the chat transcript to complete.
	Messages []Message `json:"messages"`

	// Model overrides the configured default model. Optional.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the completion length. Optional.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature overrides the configured sampling temperature.
	Temperature *float64 `json:"temperature,omitempty"`
}

// NewCompletionRequest builds a request with a fresh ID.
func NewCompletionRequest(userID string, messages []Message) *CompletionRequest {
	return &CompletionRequest{
		ID:       uuid.NewString(),
		UserID:   userID,
		Messages: messages,
	}
}

// Validate checks the request before it reaches a provider.
func (r *CompletionRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("messages[%d]: invalid role %q", i, msg.Role)
		}
		if msg.Content == "" {
			return fmt.Errorf("messages[%d]: content must not be empty", i)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the provider's answer to a CompletionRequest.
type CompletionResponse struct {
	// ID uniquely identifies this response.
	ID string `json:"id"`

	// RequestID echoes the originating request's ID.
	RequestID string `json:"request_id"`

	// Content is the completion text.
	Content string `json:"content"`

	// Model is the model that produced the completion.
	Model string `json:"model"`

	// FinishReason reports why generation stopped.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage reports token consumption.
	Usage Usage `json:"usage"`

	// CreatedAt is when the response was produced.
	CreatedAt time.Time `json:"created_at"`
}

// NewCompletionResponse builds a response with a fresh ID.
func NewCompletionResponse(requestID, content, model string) *CompletionResponse {
	return &CompletionResponse{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Content:   content,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
}

// Provider generates completions against an upstream LLM API.
type Provider interface {
	// Complete runs a single completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Model returns the provider's default model name.
	Model() string
}
