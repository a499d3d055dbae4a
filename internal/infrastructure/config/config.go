package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Registry  RegistryConfig
	Staking   StakingConfig
	Storage   StorageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8000"`
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigins []string      `envconfig:"CORS_ORIGINS" default:"*"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
}

// RegistryConfig holds registry engine configuration.
type RegistryConfig struct {
	// Admin may change stake parameters and import snapshots
	Admin           string `envconfig:"REGISTRY_ADMIN" default:""`
	Treasury        string `envconfig:"REGISTRY_TREASURY" default:"registry-treasury"`
	SeedDir         string `envconfig:"REGISTRY_SEED_DIR" default:""`
	SeedPattern     string `envconfig:"REGISTRY_SEED_PATTERN" default:"**/*.{json,yaml,yml,toml}"`
	MaxQueryResults int    `envconfig:"REGISTRY_MAX_QUERY_RESULTS" default:"1000"`
}

// StakingConfig holds the initial reservation bond parameters.
// An empty token leaves staking disabled.
type StakingConfig struct {
	Token       string        `envconfig:"STAKING_TOKEN" default:""`
	Period      time.Duration `envconfig:"STAKING_PERIOD" default:"720h"`
	MinDuration time.Duration `envconfig:"STAKING_MIN_DURATION" default:"720h"`
	BasePrice   uint64        `envconfig:"STAKING_BASE_PRICE" default:"1000000000000000000"`
	BurnShare   uint8         `envconfig:"STAKING_BURN_SHARE" default:"100"`
}

// StorageConfig holds snapshot persistence configuration.
type StorageConfig struct {
	Enabled     bool   `envconfig:"STORAGE_ENABLED" default:"true"`
	Path        string `envconfig:"STORAGE_PATH" default:"registry.db"`
	Format      string `envconfig:"STORAGE_FORMAT" default:"json"`
	Compression string `envconfig:"STORAGE_COMPRESSION" default:"zstd"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values envconfig cannot express as types.
func (c *Config) Validate() error {
	switch c.Storage.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid STORAGE_FORMAT %q: want json or yaml", c.Storage.Format)
	}
	switch c.Storage.Compression {
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("invalid STORAGE_COMPRESSION %q: want none, gzip or zstd", c.Storage.Compression)
	}
	if c.Staking.BurnShare > 100 {
		return fmt.Errorf("invalid STAKING_BURN_SHARE %d: must not exceed 100", c.Staking.BurnShare)
	}
	if c.Registry.MaxQueryResults < 0 {
		return fmt.Errorf("invalid REGISTRY_MAX_QUERY_RESULTS %d", c.Registry.MaxQueryResults)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
		},
		Registry: RegistryConfig{
			Treasury:        "registry-treasury",
			SeedPattern:     "**/*.{json,yaml,yml,toml}",
			MaxQueryResults: 1000,
		},
		Staking: StakingConfig{
			Period:      720 * time.Hour,
			MinDuration: 720 * time.Hour,
			BasePrice:   1_000_000_000_000_000_000,
			BurnShare:   100,
		},
		Storage: StorageConfig{
			Enabled:     true,
			Path:        "registry.db",
			Format:      "json",
			Compression: "zstd",
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
