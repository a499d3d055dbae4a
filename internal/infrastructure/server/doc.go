// Package server wires the module registry into an HTTP service.
//
// Server Lifecycle:
//  1. Validate configuration
//  2. Initialize logger, Prometheus registry and tracer
//  3. Build the registry from the registry and staking sections
//  4. Open the bolt snapshot store and restore the latest snapshot
//  5. Seed modules from REGISTRY_SEED_DIR when nothing was restored
//  6. Mount middleware, /api/v1 routes, /api/v1/stream and /metrics
//  7. Serve until Shutdown, which writes a final snapshot
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Close()
//	srv.Run()
package server
