package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
)

// Source is the registry surface the persister needs
type Source interface {
	Export() *registry.Snapshot
	Restore(snap *registry.Snapshot) error
	Subscribe(h registry.Handler) func()
}

// Observer is told about every write attempt
type Observer func(size int, err error)

// Persister writes a snapshot after registry commits.
// Bursts of events coalesce into one write.
type Persister struct {
	source   Source
	store    *BoltStore
	codec    Codec
	logger   *zap.Logger
	observer Observer

	mu     sync.Mutex
	dirty  chan struct{}
	cancel func()
	done   chan struct{}
}

// PersisterOption configures a Persister
type PersisterOption func(*Persister)

// WithCodec sets the snapshot codec
func WithCodec(c Codec) PersisterOption {
	return func(p *Persister) {
		p.codec = c
	}
}

// WithPersisterLogger sets the logger
func WithPersisterLogger(logger *zap.Logger) PersisterOption {
	return func(p *Persister) {
		p.logger = logger
	}
}

// WithObserver sets a write observer, e.g. metrics
func WithObserver(o Observer) PersisterOption {
	return func(p *Persister) {
		p.observer = o
	}
}

// NewPersister creates a persister over an opened store
func NewPersister(source Source, store *BoltStore, opts ...PersisterOption) *Persister {
	p := &Persister{
		source: source,
		store:  store,
		codec:  DefaultCodec,
		logger: zap.NewNop(),
		dirty:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load restores the latest stored snapshot into the registry.
// It reports false when the store is empty.
func (p *Persister) Load(ctx context.Context) (bool, error) {
	rec, err := p.store.Latest(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	codec := Codec{Format: rec.Format, Compression: rec.Compression}
	var snap registry.Snapshot
	if err := codec.Decode(rec.Data, &snap); err != nil {
		return false, fmt.Errorf("decode snapshot %s: %w", rec.ID, err)
	}
	if err := p.source.Restore(&snap); err != nil {
		return false, fmt.Errorf("restore snapshot %s: %w", rec.ID, err)
	}

	p.logger.Info("restored registry snapshot",
		zap.String("snapshot_id", rec.ID.String()),
		zap.Int("modules", len(snap.Modules)),
		zap.Time("created_at", rec.CreatedAt),
	)
	return true, nil
}

// Save exports, encodes and stores the registry now
func (p *Persister) Save(ctx context.Context) (Meta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.source.Export()
	data, err := p.codec.Encode(snap)
	if err != nil {
		p.observe(0, err)
		return Meta{}, err
	}
	meta, err := p.store.Put(ctx, p.codec, len(snap.Modules), data)
	p.observe(len(data), err)
	if err != nil {
		return Meta{}, err
	}

	p.logger.Debug("saved registry snapshot",
		zap.String("snapshot_id", meta.ID.String()),
		zap.Int("bytes", meta.Size),
		zap.Int("modules", meta.Modules),
	)
	return meta, nil
}

func (p *Persister) observe(size int, err error) {
	if p.observer != nil {
		p.observer(size, err)
	}
}

// Start subscribes to registry events and saves in the background until Stop
func (p *Persister) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	unsubscribe := p.source.Subscribe(func(registry.Event) {
		select {
		case p.dirty <- struct{}{}:
		default:
		}
	})
	p.cancel = func() {
		unsubscribe()
		cancel()
	}
	p.done = make(chan struct{})

	go p.loop(ctx)
}

func (p *Persister) loop(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.dirty:
			// An in-flight write finishes even if Stop races it
			if _, err := p.Save(context.WithoutCancel(ctx)); err != nil {
				p.logger.Error("failed to save registry snapshot", zap.Error(err))
			}
		}
	}
}

// Stop halts the background loop and writes a final snapshot if changes are pending
func (p *Persister) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	<-p.done
	p.cancel = nil

	select {
	case <-p.dirty:
		_, err := p.Save(ctx)
		return err
	default:
		return nil
	}
}
