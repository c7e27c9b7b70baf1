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

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/llmgate/llmgate/pkg/conversation"
	"github.com/llmgate/llmgate/pkg/gateway"
	"github.com/llmgate/llmgate/pkg/ratelimit"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// userID resolves the caller: the X-User-ID header, set by the auth
// middleware from the token subject, or sent directly by trusted
// clients when auth is off.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type completionRequestBody struct {
	Input       string   `json:"input"`
	SessionID   string   `json:"session_id,omitempty"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing user identity")
		return
	}

	var body completionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	result, err := s.gateway.Submit(r.Context(), &gateway.SubmitRequest{
		UserID:      user,
		SessionID:   body.SessionID,
		Input:       body.Input,
		Model:       body.Model,
		MaxTokens:   body.MaxTokens,
		Temperature: body.Temperature,
	})
	if err != nil {
		if ratelimit.IsLimitExceeded(err) {
			quota := ratelimit.QuotaFromError(err)
			resp := map[string]interface{}{"error": "rate_limit_exceeded"}
			if quota != nil {
				resp["quota"] = quota
			}
			writeJSON(w, http.StatusTooManyRequests, resp)
			return
		}

		slog.Error("completion failed", "user_id", user, "error", err)
		writeError(w, http.StatusBadGateway, "completion failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing user identity")
		return
	}

	resourceType := r.URL.Query().Get("resource_type")
	if resourceType == "" {
		resourceType = ratelimit.ResourceGPT
	}

	quota, err := s.gateway.GetQuota(r.Context(), user, resourceType)
	if err != nil {
		if errors.Is(err, ratelimit.ErrUnknownResourceType) {
			writeError(w, http.StatusBadRequest, "unknown resource type")
			return
		}
		slog.Error("quota lookup failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "quota lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, quota)
}

type sessionResponse struct {
	Session  *conversation.Session `json:"session"`
	Messages interface{}           `json:"messages"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.gateway.Conversations == nil {
		writeError(w, http.StatusNotFound, "conversation storage is not enabled")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.gateway.Conversations.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("session lookup failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}

	messages, err := s.gateway.Conversations.GetMessages(r.Context(), sessionID, 0)
	if err != nil {
		slog.Error("message lookup failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: session, Messages: messages})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.gateway.Conversations == nil {
		writeError(w, http.StatusNotFound, "conversation storage is not enabled")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := s.gateway.Conversations.DeleteSession(r.Context(), sessionID); err != nil {
		slog.Error("session delete failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "session delete failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateLimitBody struct {
	MaxRequests   int `json:"max_requests"`
	WindowSeconds int `json:"window_seconds"`
}

func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	if s.limiter == nil {
		writeError(w, http.StatusNotFound, "rate limiting is not enabled")
		return
	}

	var body updateLimitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MaxRequests <= 0 || body.WindowSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "max_requests and window_seconds must be positive")
		return
	}

	resourceType := chi.URLParam(r, "resourceType")
	s.limiter.UpdateLimitConfig(resourceType, body.MaxRequests, body.WindowSeconds)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resource_type":  resourceType,
		"max_requests":   body.MaxRequests,
		"window_seconds": body.WindowSeconds,
	})
}

func (s *Server) handleResetLimit(w http.ResponseWriter, r *http.Request) {
	if s.limiter == nil {
		writeError(w, http.StatusNotFound, "rate limiting is not enabled")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	resourceType := chi.URLParam(r, "resourceType")
	if err := s.limiter.ResetLimit(r.Context(), key, resourceType); err != nil {
		slog.Error("limit reset failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "limit reset failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
