// Package config loads the routing core's settings from layered YAML
// files plus environment overrides, grounded on the teacher's
// pkg/config/loader.go ConfigLoader (spf13/viper, base+environment+
// local-override merging); the teacher's .env file loading is not
// carried over.
package config

import (
	"fmt"
	"time"
)

// Config is the routing core's full settings tree, unmarshaled by
// ConfigLoader from config.base.yaml + config.<environment>.yaml +
// config.<environment>.local.yaml, in that precedence order.
type Config struct {
	Environment string `mapstructure:"environment"`

	Breaker     BreakerConfig     `mapstructure:"breaker"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Recovery    RecoveryConfig    `mapstructure:"recovery"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
}

// BreakerConfig mirrors pkg/breaker.Config, kept as a separate struct
// so pkg/config never imports pkg/breaker (config is the leaf of the
// dependency graph; every subsystem depends on it, never the reverse).
type BreakerConfig struct {
	FailureThreshold    uint32        `mapstructure:"failure_threshold"`
	RecoveryTimeout     time.Duration `mapstructure:"recovery_timeout"`
	SuccessThreshold    uint32        `mapstructure:"success_threshold"`
	HalfOpenMaxRequests uint32        `mapstructure:"half_open_max_requests"`
	PersistenceEnabled  bool          `mapstructure:"persistence_enabled"`
	SnapshotDir         string        `mapstructure:"snapshot_dir"`
}

// RateLimitConfig mirrors pkg/ratelimit.Config plus the backend choice
// (in-process sharded map vs. networked Redis).
type RateLimitConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Max              int           `mapstructure:"max"`
	Burst            int           `mapstructure:"burst"`
	WindowSeconds    int64         `mapstructure:"window_seconds"`
	MaxEntries       int           `mapstructure:"max_entries"`
	CacheTTLSeconds  int64         `mapstructure:"cache_ttl_seconds"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Backend          string        `mapstructure:"backend"` // "memory" or "redis"
	RedisAddress     string        `mapstructure:"redis_address"`
}

// RecoveryPolicyConfig mirrors pkg/recovery.Policy.
type RecoveryPolicyConfig struct {
	Strategy   string        `mapstructure:"strategy"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// RecoveryConfig holds the per-subsystem-id policy table keyed the same
// "<provider_type>:<provider_id>" way pkg/recovery.Manager is.
type RecoveryConfig struct {
	Policies            map[string]RecoveryPolicyConfig `mapstructure:"policies"`
	HealthCheckInterval  time.Duration                  `mapstructure:"health_check_interval"`
}

// HealthCheckConfig governs the Health Monitor's background probing.
type HealthCheckConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ProviderConfig configures one embedding or vector-store provider.
type ProviderConfig struct {
	Kind       string `mapstructure:"kind"` // "mock", "openai", "gemini", "ollama", "voyage"
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ProvidersConfig holds every configured embedding/vector-store
// provider, keyed by provider id.
type ProvidersConfig struct {
	Embedding   map[string]ProviderConfig `mapstructure:"embedding"`
	VectorStore map[string]ProviderConfig `mapstructure:"vector_store"`
}

// DefaultConfig returns a Config with sane defaults for local/demo use,
// mirroring each subsystem's own DefaultConfig/DefaultRecoveryPolicies.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			RecoveryTimeout:     30 * time.Second,
			SuccessThreshold:    2,
			HalfOpenMaxRequests: 1,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			Max:              100,
			Burst:            20,
			WindowSeconds:    60,
			MaxEntries:       10000,
			CacheTTLSeconds:  1,
			OperationTimeout: 2 * time.Second,
			Backend:          "memory",
		},
		Recovery: RecoveryConfig{
			Policies: map[string]RecoveryPolicyConfig{
				"default": {
					Strategy:   "restart",
					MaxRetries: 5,
					BaseDelay:  time.Second,
					Multiplier: 2.0,
					MaxDelay:   time.Minute,
				},
			},
			HealthCheckInterval: 30 * time.Second,
		},
		HealthCheck: HealthCheckConfig{
			Interval: 15 * time.Second,
			Timeout:  10 * time.Second,
		},
		Providers: ProvidersConfig{
			Embedding:   map[string]ProviderConfig{"mock": {Kind: "mock", Dimensions: 256}},
			VectorStore: map[string]ProviderConfig{"mock": {Kind: "mock"}},
		},
	}
}

// Load resolves configPath/environment into a Config via ConfigLoader,
// falling back to DefaultConfig's values for anything unset.
func Load(configPath, environment string) (*Config, error) {
	loader, err := LoadConfig(configPath, environment)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := DefaultConfig()
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return cfg, nil
}
