// Package storage persists registry snapshots.
//
// A snapshot is the registry's Export serialized by a Codec (JSON through
// sonic, or YAML converted from that JSON, optionally compressed with zstd or
// gzip) and stored in a bbolt database keyed by snapshot ULID. The Persister
// subscribes to registry events and rewrites the snapshot after commits; at
// boot it restores the latest snapshot into an empty registry.
//
// Example Usage:
//
//	store := storage.NewBoltStore(storage.WithBoltLogger(logger))
//	if err := store.Open(cfg.Storage.Path); err != nil {
//		return err
//	}
//	p := storage.NewPersister(reg, store, storage.WithCodec(codec))
//	if _, err := p.Load(ctx); err != nil {
//		return err
//	}
//	p.Start(ctx)
//	defer p.Stop(ctx)
package storage
