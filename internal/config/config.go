package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// ServerName is the MCP server name announced to clients.
	ServerName = "blpapi-mcp"
	// ServerVersion is the MCP server version announced to clients.
	ServerVersion = "1.0.0"
)

// Config represents the blpapi-mcp configuration
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP transport settings. They only take effect when the
// server runs in HTTP mode; stdio mode ignores them.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TerminalConfig holds the connection settings for the local Bloomberg
// Terminal (BBComm). Only local Terminal access is supported.
type TerminalConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Timeout is the per-request response timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// RateLimitConfig holds the daily Bloomberg usage cap settings.
type RateLimitConfig struct {
	// DailyLimit is the maximum number of data hits per civil day.
	DailyLimit int `yaml:"daily_limit"`
	// StatePath is where the usage counter persists its state.
	StatePath string `yaml:"state_path"`
	// Timezone is the IANA zone that defines the day boundary.
	Timezone string `yaml:"timezone"`
	// RetentionDays is how many days of usage history to keep.
	RetentionDays int `yaml:"retention_days"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Terminal: TerminalConfig{
			Host:    "localhost",
			Port:    8194,
			Timeout: 30,
		},
		RateLimit: RateLimitConfig{
			DailyLimit:    10000,
			StatePath:     filepath.Join("var", "ratelimit_state.json"),
			Timezone:      "America/New_York",
			RetentionDays: 30,
		},
	}
}

// Load loads the configuration from the given YAML file. An empty path
// returns the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.applyDefaults()
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyDefaults fills in missing configuration with sensible defaults
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Terminal.Host == "" {
		c.Terminal.Host = defaults.Terminal.Host
	}
	if c.Terminal.Port == 0 {
		c.Terminal.Port = defaults.Terminal.Port
	}
	if c.Terminal.Timeout == 0 {
		c.Terminal.Timeout = defaults.Terminal.Timeout
	}
	if c.RateLimit.DailyLimit == 0 {
		c.RateLimit.DailyLimit = defaults.RateLimit.DailyLimit
	}
	if c.RateLimit.StatePath == "" {
		c.RateLimit.StatePath = defaults.RateLimit.StatePath
	}
	if c.RateLimit.Timezone == "" {
		c.RateLimit.Timezone = defaults.RateLimit.Timezone
	}
	if c.RateLimit.RetentionDays == 0 {
		c.RateLimit.RetentionDays = defaults.RateLimit.RetentionDays
	}
}

// applyEnv applies environment variable overrides on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("BLPAPI_MCP_TERMINAL_HOST"); v != "" {
		c.Terminal.Host = v
	}
	if v := os.Getenv("BLPAPI_MCP_TERMINAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Terminal.Port = port
		}
	}
	if v := os.Getenv("BLPAPI_MCP_STATE"); v != "" {
		c.RateLimit.StatePath = v
	}
	if v := os.Getenv("BLPAPI_MCP_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.DailyLimit = n
		}
	}
}

// Save saves the configuration to the given YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
