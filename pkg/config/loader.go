package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigLoader handles loading and merging configuration files
type ConfigLoader struct {
	configPath string
	viper      *viper.Viper
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(configPath string) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
		viper:      viper.New(),
	}
}

// LoadEnvironment loads environment-specific configuration: a required
// base file, an optional environment file, and an optional local
// override file, merged in that precedence order.
func (cl *ConfigLoader) LoadEnvironment(environment string) error {
	cl.viper.SetConfigType("yaml")
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	
	// Load base configuration first
	baseConfig := filepath.Join(cl.configPath, "config.base.yaml")
	if err := cl.loadConfigFile(baseConfig); err != nil {
		return fmt.Errorf("failed to load base config: %w", err)
	}

	// Load environment-specific configuration
	envConfig := filepath.Join(cl.configPath, fmt.Sprintf("config.%s.yaml", environment))
	if _, err := os.Stat(envConfig); err == nil {
		if err := cl.mergeConfigFile(envConfig); err != nil {
			return fmt.Errorf("failed to load environment config: %w", err)
		}
	}

	// Load local overrides if they exist
	localConfig := filepath.Join(cl.configPath, fmt.Sprintf("config.%s.local.yaml", environment))
	if _, err := os.Stat(localConfig); err == nil {
		if err := cl.mergeConfigFile(localConfig); err != nil {
			return fmt.Errorf("failed to load local config: %w", err)
		}
	}

	return nil
}

// loadConfigFile loads a configuration file
func (cl *ConfigLoader) loadConfigFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))
	
	// Parse YAML to handle _base directive
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &rawConfig); err != nil {
		return err
	}

	// Check for base configuration
	if base, ok := rawConfig["_base"].(string); ok {
		basePath := filepath.Join(cl.configPath, base)
		if err := cl.loadConfigFile(basePath); err != nil {
			return fmt.Errorf("failed to load base config %s: %w", base, err)
		}
		delete(rawConfig, "_base")
	}

	// Merge configuration
	return cl.viper.MergeConfigMap(rawConfig)
}

// mergeConfigFile merges a configuration file with existing config
func (cl *ConfigLoader) mergeConfigFile(filename string) error {
	return cl.loadConfigFile(filename)
}

// GetString returns a string configuration value
func (cl *ConfigLoader) GetString(key string) string {
	return cl.viper.GetString(key)
}

// Unmarshal unmarshals the entire configuration
func (cl *ConfigLoader) Unmarshal(rawVal interface{}) error {
	return cl.viper.Unmarshal(rawVal)
}

// IsSet checks if a configuration key is set
func (cl *ConfigLoader) IsSet(key string) bool {
	return cl.viper.IsSet(key)
}

// LoadConfig is a convenience function to load configuration for an environment
func LoadConfig(configPath, environment string) (*ConfigLoader, error) {
	if environment == "" {
		environment = os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}
	}

	loader := NewConfigLoader(configPath)
	if err := loader.LoadEnvironment(environment); err != nil {
		return nil, err
	}

	return loader, nil
}

// ValidateConfig validates required configuration values for the
// routing core.
func ValidateConfig(loader *ConfigLoader, environment string) error {
	required := []string{
		"environment",
		"breaker.failure_threshold",
		"rate_limit.backend",
	}

	// A networked rate-limit backend needs a reachable address.
	if loader.GetString("rate_limit.backend") == "redis" {
		required = append(required, "rate_limit.redis_address")
	}

	var missing []string
	for _, field := range required {
		if !loader.IsSet(field) || loader.GetString(field) == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration fields: %v", missing)
	}

	return nil
}