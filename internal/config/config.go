package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is used when EXA_API_KEY is not set.
const PlaceholderAPIKey = "EXA_API_KEY"

var (
	ErrMissingAPIKey  = errors.New("EXA_API_KEY is required")
	ErrInvalidBaseURL = errors.New("invalid EXA_BASE_URL")
	ErrInvalidTimeout = errors.New("exa timeout must not be negative")
)

type Config struct {
	Exa     ExaConfig     `yaml:"exa"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Server  ServerConfig  `yaml:"server"`
	Trace   TraceConfig   `yaml:"trace"`
}

type ExaConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type ServerConfig struct {
	Name string `yaml:"name"`
}

type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
}

func defaults() *Config {
	return &Config{
		Exa: ExaConfig{
			APIKey:  PlaceholderAPIKey,
			BaseURL: "https://api.exa.ai",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Name: "exa-search",
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads a YAML file as the base and applies environment overrides on
// top. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Exa.APIKey = getEnvOrDefault("EXA_API_KEY", c.Exa.APIKey)
	c.Exa.BaseURL = getEnvOrDefault("EXA_BASE_URL", c.Exa.BaseURL)
	c.Exa.Timeout = getEnvSecondsOrDefault("EXA_TIMEOUT_SEC", c.Exa.Timeout)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Metrics.Addr = getEnvOrDefault("METRICS_ADDR", c.Metrics.Addr)
	c.Server.Name = getEnvOrDefault("SERVER_NAME", c.Server.Name)
	c.Trace.Enabled = getEnvBoolOrDefault("TRACE_ENABLED", c.Trace.Enabled)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Exa.APIKey) == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(c.Exa.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.Exa.Timeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// HasPlaceholderKey reports whether no real API key was configured.
func (c *Config) HasPlaceholderKey() bool {
	return c.Exa.APIKey == PlaceholderAPIKey
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvSecondsOrDefault reads whole seconds from key. An unset or malformed
// value leaves defaultValue untouched, sub-second precision included.
func getEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if sec, err := strconv.Atoi(value); err == nil {
			return time.Duration(sec) * time.Second
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
