package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_PORT", "SCHEMA_SYNC_ON_FAILURE", "SEED_ON_START", "SCHEMA_SYNC_TIMEOUT"} {
		unsetenv(t, k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, SchemaSyncWarn, cfg.SchemaSyncOnFailure)
	assert.False(t, cfg.AbortOnSchemaSyncFailure())
	assert.False(t, cfg.SeedOnStart)
	assert.Equal(t, 30*time.Second, cfg.SchemaSyncTimeout)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SCHEMA_SYNC_ON_FAILURE", "ABORT")
	t.Setenv("SEED_ON_START", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.True(t, cfg.AbortOnSchemaSyncFailure())
	assert.True(t, cfg.SeedOnStart)
}

func TestLoadAppPortFallback(t *testing.T) {
	unsetenv(t, "PORT")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRejectsUnknownSchemaPolicy(t *testing.T) {
	t.Setenv("SCHEMA_SYNC_ON_FAILURE", "ignore")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMA_SYNC_ON_FAILURE")
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "shop", DBPass: "secret", DBHost: "db", DBPort: "3307", DBName: "catalog"}
	assert.Equal(t, "shop:secret@tcp(db:3307)/catalog?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DSN())

	cfg.DatabaseURL = "u@tcp(h:1)/x"
	assert.Equal(t, "u@tcp(h:1)/x", cfg.DSN())
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_TTL", "2m")

	cfg, err := LoadCacheConfig()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 2*time.Minute, cfg.TTL)
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRedisConfigHostPort(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Addr)
}

func TestLoadEventsConfigFallsBackToAMQPURL(t *testing.T) {
	unsetenv(t, "RABBITMQ_URL")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")

	cfg, err := LoadEventsConfig()
	require.NoError(t, err)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.URL)
	assert.Equal(t, "product.created", cfg.Queue)
}
