// Package config loads churnmap configuration from file, environment,
// and defaults, in that precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete churnmap configuration
type Config struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Walker  WalkerConfig  `json:"walker" yaml:"walker" mapstructure:"walker"`
	Cache   CacheConfig   `json:"cache" yaml:"cache" mapstructure:"cache"`
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls the protocol client
type HTTPConfig struct {
	TimeoutMs int    `json:"timeoutMs" yaml:"timeoutMs" mapstructure:"timeoutMs"`
	UserAgent string `json:"userAgent" yaml:"userAgent" mapstructure:"userAgent"`
}

// WalkerConfig controls the commit walk and object resolution
type WalkerConfig struct {
	// Concurrency bounds concurrent commit visits; 0 leaves it unbounded
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	// TreeCacheSize is the LRU capacity for decoded trees
	TreeCacheSize int `json:"treeCacheSize" yaml:"treeCacheSize" mapstructure:"treeCacheSize"`
	// GitTimeoutMs bounds a single git invocation in local-clone mode
	GitTimeoutMs int `json:"gitTimeoutMs" yaml:"gitTimeoutMs" mapstructure:"gitTimeoutMs"`
}

// CacheConfig controls the persistent result cache
type CacheConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path        string `json:"path" yaml:"path" mapstructure:"path"`
	MaxAgeHours int    `json:"maxAgeHours" yaml:"maxAgeHours" mapstructure:"maxAgeHours"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			TimeoutMs: 30000,
			UserAgent: "churnmap/1.0",
		},
		Walker: WalkerConfig{
			Concurrency:   8,
			TreeCacheSize: 4096,
			GitTimeoutMs:  5000,
		},
		Cache: CacheConfig{
			Enabled:     true,
			Path:        defaultCachePath(),
			MaxAgeHours: 24 * 7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".churnmap", "cache.db")
	}
	return filepath.Join(home, ".churnmap", "cache.db")
}

// Load reads configuration from an optional file path plus CHURNMAP_*
// environment variables, layered over the defaults. With an empty path
// it looks for churnmap.yaml in the working directory and ~/.churnmap.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHURNMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("churnmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".churnmap"))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("http.timeoutMs", def.HTTP.TimeoutMs)
	v.SetDefault("http.userAgent", def.HTTP.UserAgent)
	v.SetDefault("walker.concurrency", def.Walker.Concurrency)
	v.SetDefault("walker.treeCacheSize", def.Walker.TreeCacheSize)
	v.SetDefault("walker.gitTimeoutMs", def.Walker.GitTimeoutMs)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("cache.maxAgeHours", def.Cache.MaxAgeHours)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

// Write serializes a config to a YAML file, refusing to overwrite
func (c *Config) Write(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// HTTPTimeout returns the protocol client timeout as a duration
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutMs) * time.Millisecond
}

// GitTimeout returns the local git invocation timeout as a duration
func (c *Config) GitTimeout() time.Duration {
	return time.Duration(c.Walker.GitTimeoutMs) * time.Millisecond
}

// CacheMaxAge returns the result cache expiry as a duration
func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.Cache.MaxAgeHours) * time.Hour
}
