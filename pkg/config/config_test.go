package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "memory", cfg.RateLimiting.Backend)
	assert.True(t, cfg.RateLimiting.IsEnabled())
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
	assert.Equal(t, "memory", cfg.Conversations.Backend)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-secret")
	t.Setenv("TEST_PORT", "9090")

	cfg, err := Parse([]byte(`
server:
  port: ${TEST_PORT:-8080}
llm:
  api_key: ${TEST_LLM_KEY}
redis:
  addr: ${TEST_REDIS_ADDR:-localhost:6379}
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestParse_RateLimitResources(t *testing.T) {
	cfg, err := Parse([]byte(`
rate_limiting:
  backend: redis
  resources:
    gpt:
      max_requests: 5
      window_seconds: 30
`))
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.RateLimiting.Backend)
	res, ok := cfg.RateLimiting.Resources["gpt"]
	require.True(t, ok)
	assert.Equal(t, 5, res.MaxRequests)
	assert.Equal(t, 30, res.WindowSeconds)
}

func TestParse_InvalidBackend(t *testing.T) {
	_, err := Parse([]byte(`
rate_limiting:
  backend: memcached
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limiting")
}

func TestParse_NonPositiveResourceLimit(t *testing.T) {
	_, err := Parse([]byte(`
rate_limiting:
  resources:
    gpt:
      max_requests: 0
      window_seconds: 60
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_requests")
}

func TestParse_ConversationsDatabaseReference(t *testing.T) {
	_, err := Parse([]byte(`
conversations:
  backend: sql
  database: main
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined in databases")

	cfg, err := Parse([]byte(`
databases:
  main:
    driver: sqlite
    database: ./llmgate.db
conversations:
  backend: sql
  database: main
`))
	require.NoError(t, err)
	assert.True(t, cfg.Conversations.IsSQL())

	db, ok := cfg.GetDatabase("main")
	require.True(t, ok)
	assert.Equal(t, "sqlite3", db.DriverName())
	assert.Equal(t, "sqlite", db.Dialect())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := &DatabaseConfig{
		Driver:   "postgres",
		Host:     "db.internal",
		Database: "llmgate",
		Username: "svc",
		Password: "hunter2",
	}
	pg.SetDefaults()
	require.NoError(t, pg.Validate())
	assert.Equal(t, "host=db.internal port=5432 dbname=llmgate user=svc password=hunter2 sslmode=disable", pg.DSN())

	my := &DatabaseConfig{
		Driver:   "mysql",
		Host:     "db.internal",
		Database: "llmgate",
		Username: "svc",
		Password: "hunter2",
	}
	my.SetDefaults()
	require.NoError(t, my.Validate())
	assert.Equal(t, "svc:hunter2@tcp(db.internal:3306)/llmgate?parseTime=true", my.DSN())
}

func TestAuthConfig_Validate(t *testing.T) {
	auth := &AuthConfig{Enabled: true}
	auth.SetDefaults()
	require.Error(t, auth.Validate())

	auth.JWKSURL = "https://auth.example.com/.well-known/jwks.json"
	auth.Issuer = "https://auth.example.com"
	auth.Audience = "llmgate-api"
	require.NoError(t, auth.Validate())
	assert.Equal(t, 15*time.Minute, auth.RefreshInterval)
	assert.True(t, auth.IsEnabled())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}
