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

// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/llmgate/llmgate/pkg/auth"
	"github.com/llmgate/llmgate/pkg/config"
	"github.com/llmgate/llmgate/pkg/gateway"
	"github.com/llmgate/llmgate/pkg/ratelimit"
)

// Server is the HTTP front of the gateway.
type Server struct {
	cfg        *config.ServerConfig
	gateway    *gateway.Gateway
	limiter    *ratelimit.Service
	validator  *auth.JWTValidator
	httpServer *http.Server
}

// New assembles the server. limiter and validator may be nil, which
// disables the corresponding middleware.
func New(cfg *config.ServerConfig, gw *gateway.Gateway, limiter *ratelimit.Service, validator *auth.JWTValidator) *Server {
	s := &Server{
		cfg:       cfg,
		gateway:   gw,
		limiter:   limiter,
		validator: validator,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Router builds the route tree. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	if s.validator != nil {
		excluded := []string{"/health"}
		if s.cfg.Auth != nil {
			excluded = s.cfg.Auth.ExcludedPaths
		}
		r.Use(s.validator.Middleware(excluded))
	}

	if s.limiter != nil {
		r.Use(ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Service:       s.limiter,
			ResourceType:  ratelimit.ResourceAPI,
			ExcludedPaths: []string{"/health"},
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/completions", s.handleCompletion)
		r.Get("/quota", s.handleQuota)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
		})

		r.Route("/limits/{resourceType}", func(r chi.Router) {
			if s.validator != nil {
				r.Use(auth.RequireRole("admin"))
			}
			r.Put("/", s.handleUpdateLimit)
			r.Post("/reset", s.handleResetLimit)
		})
	})

	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
