package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_HasSaneBreakerAndRateLimitDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint32(5), cfg.Breaker.FailureThreshold)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, "restart", cfg.Recovery.Policies["default"].Strategy)
}

func TestLoad_MergesBaseAndEnvironmentFiles(t *testing.T) {
	dir, err := os.MkdirTemp("", "routing-core-config-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	base := `
environment: development
breaker:
  failure_threshold: 5
  recovery_timeout: 30s
rate_limit:
  backend: memory
  max: 100
`
	prod := `
_base: config.base.yaml
rate_limit:
  backend: redis
  redis_address: "redis:6379"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.base.yaml"), []byte(base), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.production.yaml"), []byte(prod), 0644))

	cfg, err := Load(dir, "production")
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, "redis:6379", cfg.RateLimit.RedisAddress)
	assert.Equal(t, uint32(5), cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.RecoveryTimeout)
}

func TestValidateConfig_RequiresRedisAddressWhenBackendIsRedis(t *testing.T) {
	dir, err := os.MkdirTemp("", "routing-core-config-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfgYAML := `
environment: production
breaker:
  failure_threshold: 5
rate_limit:
  backend: redis
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.base.yaml"), []byte(cfgYAML), 0644))

	loader, err := LoadConfig(dir, "production")
	require.NoError(t, err)

	err = ValidateConfig(loader, "production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.redis_address")
}

func TestValidateConfig_PassesWithMemoryBackend(t *testing.T) {
	dir, err := os.MkdirTemp("", "routing-core-config-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfgYAML := `
environment: development
breaker:
  failure_threshold: 5
rate_limit:
  backend: memory
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.base.yaml"), []byte(cfgYAML), 0644))

	loader, err := LoadConfig(dir, "development")
	require.NoError(t, err)

	require.NoError(t, ValidateConfig(loader, "development"))
}
