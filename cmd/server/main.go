package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dapplets/dapplet-registry/internal/infrastructure/config"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/server"
)

func main() {
	cfg := config.LoadOrDefault()

	// Flags override environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Server host")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.StringVar(&cfg.Storage.Path, "storage", cfg.Storage.Path, "Snapshot database path")
	flag.BoolVar(&cfg.Storage.Enabled, "persist", cfg.Storage.Enabled, "Persist registry snapshots")
	flag.StringVar(&cfg.Registry.SeedDir, "seed", cfg.Registry.SeedDir, "Directory of module manifests to seed an empty registry")
	flag.StringVar(&cfg.Registry.Admin, "admin", cfg.Registry.Admin, "Registry admin account")
	flag.StringVar(&cfg.Staking.Token, "staking-token", cfg.Staking.Token, "Bond token; empty disables staking")
	flag.Parse()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		_ = srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}
