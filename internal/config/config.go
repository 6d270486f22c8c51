// Package config loads cachequery settings from an optional YAML file and
// CACHEQUERY_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/logger"
)

// EnvPrefix is prepended to every environment variable, so store.path is
// read from CACHEQUERY_STORE_PATH.
const EnvPrefix = "CACHEQUERY"

// DefaultFile is the config file name searched for in the working directory
// when Load is given no path.
const DefaultFile = "cachequery.yaml"

// Config is the full application configuration.
type Config struct {
	Log   logger.Config `mapstructure:"log" yaml:"log"`
	Store StoreConfig   `mapstructure:"store" yaml:"store"`
	Cache CacheConfig   `mapstructure:"cache" yaml:"cache"`
}

// StoreConfig locates the entry store.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CacheConfig describes the cache the CLI binds its facade to.
type CacheConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Partitions   int    `mapstructure:"partitions" yaml:"partitions"`
	KeepPortable bool   `mapstructure:"keep_portable" yaml:"keep_portable"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", logger.Info)
	v.SetDefault("log.format", logger.FormatConsole)
	v.SetDefault("store.path", "cachequery.db")
	v.SetDefault("cache.name", "default")
	v.SetDefault("cache.partitions", cache.DefaultPartitions)
	v.SetDefault("cache.keep_portable", false)
}

// Load reads configuration. When path is empty, DefaultFile is used if it
// exists in the working directory; an explicit path must exist. Environment
// variables override file values, which override defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field, reporting the first problem.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Store.Path == "" {
		return errors.New("store.path: must not be empty")
	}
	if c.Cache.Name == "" {
		return errors.New("cache.name: must not be empty")
	}
	if c.Cache.Partitions < 1 || c.Cache.Partitions > cache.MaxPartitions {
		return fmt.Errorf("cache.partitions: %d is outside [1, %d]", c.Cache.Partitions, cache.MaxPartitions)
	}
	return nil
}

// Context builds the cache context described by c.
func (c CacheConfig) Context() (*cache.Context, error) {
	return cache.New(c.Name, cache.WithPartitions(c.Partitions))
}
