// Package config loads daemon configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Reachability ReachabilityConfig `mapstructure:"reachability"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address for the control API.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RemoteConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AuthToken string `mapstructure:"auth_token"`
	Timeout   string `mapstructure:"timeout"`
}

// GetTimeout parses the request timeout, defaulting to 30s.
func (r RemoteConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(r.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type ReachabilityConfig struct {
	ProbeURL string `mapstructure:"probe_url"`
	Interval string `mapstructure:"interval"`
}

// GetInterval parses the probe interval, defaulting to 15s.
func (r ReachabilityConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// SchedulerConfig controls the optional periodic sync trigger. Disabled
// by default: sync passes are normally driven by reachability edges and
// manual triggers only.
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from the given file, with FIELDSYNC_*
// environment variables overriding file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FIELDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8745)
	v.SetDefault("remote.timeout", "30s")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("reachability.interval", "15s")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "@every 5m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// A missing config file is fine: defaults plus env cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
