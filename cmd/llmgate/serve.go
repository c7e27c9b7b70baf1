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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/llmgate/llmgate/pkg/auth"
	"github.com/llmgate/llmgate/pkg/cache"
	"github.com/llmgate/llmgate/pkg/config"
	"github.com/llmgate/llmgate/pkg/conversation"
	"github.com/llmgate/llmgate/pkg/gateway"
	"github.com/llmgate/llmgate/pkg/llms"
	"github.com/llmgate/llmgate/pkg/prompt"
	"github.com/llmgate/llmgate/pkg/ratelimit"
	"github.com/llmgate/llmgate/pkg/server"
)

// ServeCmd starts the gateway server.
type ServeCmd struct {
	Port         int    `help:"Port to listen on (overrides config)."`
	Model        string `help:"LLM model name (overrides config)."`
	APIKey       string `name:"api-key" help:"LLM API key (defaults to OPENAI_API_KEY)."`
	SystemPrompt string `name:"system-prompt" help:"System prompt prepended to every request."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// CLI overrides
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if c.APIKey != "" {
		cfg.LLM.APIKey = c.APIKey
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cleanup, err := initLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// One Redis client serves every redis-backed component.
	var rdb *redis.Client
	if needsRedis(cfg) {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
	}

	// Shared database pool so sqlite stores do not fight over the file.
	dbPool := config.NewDBPool()
	defer func() { _ = dbPool.Close() }()

	provider, err := llms.NewOpenAIProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	var promptOpts []prompt.Option
	if c.SystemPrompt != "" {
		promptOpts = append(promptOpts, prompt.WithSystemPrompt(c.SystemPrompt))
	}
	if counter, err := llms.NewTokenCounter(cfg.LLM.Model); err == nil {
		promptOpts = append(promptOpts, prompt.WithHistoryBudget(counter, cfg.LLM.MaxTokens))
	} else {
		slog.Warn("Token counting unavailable, history will not be budgeted", "error", err)
	}

	gw := gateway.New(provider, prompt.New(promptOpts...))
	gw.MaxHistory = cfg.Conversations.MaxHistory

	var limiterSvc *ratelimit.Service
	if cfg.RateLimiting.IsEnabled() {
		limiter, err := ratelimit.NewLimiterFromConfig(cfg.RateLimiting, rdb)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		limiterSvc = ratelimit.NewServiceFromConfig(cfg.RateLimiting, limiter)
		gw.RateLimiter = limiterSvc
		slog.Info("Rate limiting enabled", "backend", cfg.RateLimiting.Backend)
	}

	if cfg.Cache.IsEnabled() {
		store, err := newCacheStore(cfg, rdb)
		if err != nil {
			return err
		}
		gw.Cache = cache.NewService(store, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		slog.Info("Response cache enabled", "backend", cfg.Cache.Backend, "ttl_seconds", cfg.Cache.TTLSeconds)
	}

	convStore, err := newConversationStore(cfg, dbPool)
	if err != nil {
		return err
	}
	gw.Conversations = convStore

	var validator *auth.JWTValidator
	if cfg.Server.Auth != nil && cfg.Server.Auth.IsEnabled() {
		validator, err = auth.NewJWTValidator(cfg.Server.Auth)
		if err != nil {
			return fmt.Errorf("failed to create JWT validator: %w", err)
		}
		slog.Info("Authentication enabled", "issuer", cfg.Server.Auth.Issuer)
	}

	srv := server.New(cfg.Server, gw, limiterSvc, validator)

	fmt.Printf("\nllmgate ready on http://%s\n", cfg.Server.Address())
	fmt.Printf("   Completions: POST /v1/completions\n")
	fmt.Printf("   Quota:       GET  /v1/quota\n")
	fmt.Printf("   Health:      GET  /health\n")
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

// needsRedis reports whether any enabled component uses the redis backend.
func needsRedis(cfg *config.Config) bool {
	if cfg.RateLimiting.IsEnabled() && cfg.RateLimiting.Backend == "redis" {
		return true
	}
	if cfg.Cache.IsEnabled() && cfg.Cache.Backend == "redis" {
		return true
	}
	return false
}

func newCacheStore(cfg *config.Config, rdb *redis.Client) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis client is required for redis cache backend")
		}
		return cache.NewRedisStore(rdb, cfg.Cache.Prefix), nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

func newConversationStore(cfg *config.Config, dbPool *config.DBPool) (conversation.Store, error) {
	if !cfg.Conversations.IsSQL() {
		return conversation.NewMemoryStore(), nil
	}

	dbCfg, ok := cfg.GetDatabase(cfg.Conversations.Database)
	if !ok {
		return nil, fmt.Errorf("conversations.database %q not defined", cfg.Conversations.Database)
	}

	db, err := dbPool.Get(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation database: %w", err)
	}

	store, err := conversation.NewSQLStore(db, dbCfg.Dialect())
	if err != nil {
		return nil, err
	}
	slog.Info("Conversation persistence enabled", "driver", dbCfg.Driver, "database", dbCfg.Database)
	return store, nil
}
