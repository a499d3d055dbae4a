// Package config provides 12-factor configuration management for the registry server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins, timeouts)
//   - Registry: Admin account, treasury, seed directory, query cap
//   - Staking: Initial reservation bond parameters
//   - Storage: Snapshot database path, format and compression
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS, READ_TIMEOUT, WRITE_TIMEOUT
//   - REGISTRY_ADMIN, REGISTRY_TREASURY, REGISTRY_SEED_DIR, REGISTRY_SEED_PATTERN
//   - REGISTRY_MAX_QUERY_RESULTS
//   - STAKING_TOKEN, STAKING_PERIOD, STAKING_MIN_DURATION, STAKING_BASE_PRICE, STAKING_BURN_SHARE
//   - STORAGE_ENABLED, STORAGE_PATH, STORAGE_FORMAT, STORAGE_COMPRESSION
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
