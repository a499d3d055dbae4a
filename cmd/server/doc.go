// Command server runs the module registry HTTP service.
//
// Usage:
//
//	server [flags]
//
// Flags override the matching environment variables:
//
//	-port           HTTP port (PORT)
//	-host           bind address (HOST)
//	-log-level      debug, info, warn or error (LOG_LEVEL)
//	-dev            human readable logs (LOG_DEV)
//	-storage        bolt snapshot file (STORAGE_PATH)
//	-persist        enable snapshot persistence (STORAGE_ENABLED)
//	-seed           manifest directory for an empty registry (REGISTRY_SEED_DIR)
//	-admin          account allowed to import snapshots and tune staking (REGISTRY_ADMIN)
//	-staking-token  reservation bond token (STAKING_TOKEN)
//
// The API is served under /api/v1, the event stream at /api/v1/stream and
// Prometheus metrics at /metrics.
package main
