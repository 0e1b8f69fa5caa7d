package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration. An explicit YAML file takes
// precedence over environment variables, which override built-in defaults.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700" yaml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" yaml:"host"`
}

// TerminalConfig holds session spawning configuration.
type TerminalConfig struct {
	// Shell is the child program for new sessions; empty uses $SHELL.
	Shell string `envconfig:"TERMHUB_SHELL" yaml:"shell"`
	// ScrollbackLines bounds each session's scrollback ring.
	ScrollbackLines int `envconfig:"TERMHUB_SCROLLBACK" default:"1000" yaml:"scrollback_lines"`
	// KillGrace is how long kill waits for a graceful exit before SIGKILL.
	KillGrace time.Duration `envconfig:"TERMHUB_KILL_GRACE" default:"500ms" yaml:"kill_grace"`
	// DefaultCols and DefaultRows size sessions created without a viewport.
	DefaultCols int `envconfig:"TERMHUB_COLS" default:"80" yaml:"default_cols"`
	DefaultRows int `envconfig:"TERMHUB_ROWS" default:"24" yaml:"default_rows"`
	// IdentEnv names the environment variable exporting the session ID to
	// the child process.
	IdentEnv string `envconfig:"TERMHUB_IDENT_ENV" default:"TERMHUB_SESSION" yaml:"ident_env"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load reads configuration: defaults, then environment variables, then the
// YAML file at path (if path is non-empty and the file exists) on top.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or falls back to defaults.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "127.0.0.1",
		},
		Terminal: TerminalConfig{
			ScrollbackLines: 1000,
			KillGrace:       500 * time.Millisecond,
			DefaultCols:     80,
			DefaultRows:     24,
			IdentEnv:        "TERMHUB_SESSION",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
