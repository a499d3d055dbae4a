package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/shared/id"
)

var (
	bucketBlobs = []byte("snapshots")
	bucketIndex = []byte("snapshot_index")
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("snapshot not found")

// Meta describes one stored snapshot
type Meta struct {
	ID          id.SnapshotID `json:"id"`
	Format      Format        `json:"format"`
	Compression Compression   `json:"compression"`
	Size        int           `json:"size"`
	Modules     int           `json:"modules"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Record is a stored snapshot with its encoded payload
type Record struct {
	Meta
	Data []byte
}

// BoltStore keeps encoded registry snapshots in bbolt.
// Keys are snapshot ULIDs, so cursor order is creation order.
type BoltStore struct {
	db        *bbolt.DB
	logger    *zap.Logger
	now       func() time.Time
	retention int
	noSync    bool
}

// BoltOption configures a BoltStore
type BoltOption func(*BoltStore)

// WithBoltLogger sets the logger
func WithBoltLogger(logger *zap.Logger) BoltOption {
	return func(b *BoltStore) {
		b.logger = logger
	}
}

// WithNow sets the time function for testing
func WithNow(now func() time.Time) BoltOption {
	return func(b *BoltStore) {
		b.now = now
	}
}

// WithRetention keeps at most n snapshots; n <= 0 keeps all
func WithRetention(n int) BoltOption {
	return func(b *BoltStore) {
		b.retention = n
	}
}

// WithNoSync disables fsync per transaction. Testing only.
func WithNoSync(noSync bool) BoltOption {
	return func(b *BoltStore) {
		b.noSync = noSync
	}
}

// NewBoltStore creates an unopened store
func NewBoltStore(opts ...BoltOption) *BoltStore {
	b := &BoltStore{
		logger:    zap.NewNop(),
		now:       time.Now,
		retention: 16,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens the database at path and creates buckets
func (b *BoltStore) Open(path string) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
		NoSync:  b.noSync,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	b.db = db

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBlobs, bucketIndex} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		b.db = nil
		return err
	}

	b.logger.Debug("opened snapshot store", zap.String("path", path), zap.Int("retention", b.retention))
	return nil
}

// Close closes the database
func (b *BoltStore) Close() error {
	if b.db == nil {
		return nil
	}
	b.logger.Debug("closing snapshot store")
	return b.db.Close()
}

// Put stores an encoded snapshot and prunes beyond retention
func (b *BoltStore) Put(ctx context.Context, codec Codec, modules int, data []byte) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	meta := Meta{
		ID:          id.NewSnapshotID(),
		Format:      codec.Format,
		Compression: codec.Compression,
		Size:        len(data),
		Modules:     modules,
		CreatedAt:   b.now().UTC(),
	}
	encoded, err := sonic.Marshal(meta)
	if err != nil {
		return Meta{}, fmt.Errorf("encoding meta: %w", err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(meta.ID)
		if err := tx.Bucket(bucketBlobs).Put(key, data); err != nil {
			return fmt.Errorf("putting snapshot: %w", err)
		}
		if err := tx.Bucket(bucketIndex).Put(key, encoded); err != nil {
			return fmt.Errorf("putting meta: %w", err)
		}
		return b.prune(tx)
	})
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}

func (b *BoltStore) prune(tx *bbolt.Tx) error {
	if b.retention <= 0 {
		return nil
	}
	index := tx.Bucket(bucketIndex)

	var keys [][]byte
	c := index.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	if len(keys) <= b.retention {
		return nil
	}

	stale := keys[:len(keys)-b.retention]
	for _, k := range stale {
		if err := index.Delete(k); err != nil {
			return fmt.Errorf("pruning meta: %w", err)
		}
		if err := tx.Bucket(bucketBlobs).Delete(k); err != nil {
			return fmt.Errorf("pruning snapshot: %w", err)
		}
	}
	return nil
}

// Latest returns the most recent snapshot
func (b *BoltStore) Latest(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if _, err := id.Parse(string(snapshotID)); err != nil {
		return Record{}, fmt.Errorf("%w: malformed id %q", ErrNotFound, snapshotID)
	}
	var rec Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(bucketIndex).Cursor().Last()
		if k == nil {
			return ErrNotFound
		}
		return readRecord(tx, k, &rec)
	})
	return rec, err
}

// Get returns the snapshot with the given ID
func (b *BoltStore) Get(ctx context.Context, snapshotID id.SnapshotID) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if _, err := id.Parse(string(snapshotID)); err != nil {
		return Record{}, fmt.Errorf("%w: malformed id %q", ErrNotFound, snapshotID)
	}
	var rec Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		return readRecord(tx, []byte(snapshotID), &rec)
	})
	return rec, err
}

// List returns snapshot metadata, newest first
func (b *BoltStore) List(ctx context.Context) ([]Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var metas []Meta
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketIndex).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var m Meta
			if err := sonic.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("decoding meta %s: %w", k, err)
			}
			metas = append(metas, m)
		}
		return nil
	})
	return metas, err
}

func readRecord(tx *bbolt.Tx, key []byte, rec *Record) error {
	raw := tx.Bucket(bucketIndex).Get(key)
	if raw == nil {
		return ErrNotFound
	}
	if err := sonic.Unmarshal(raw, &rec.Meta); err != nil {
		return fmt.Errorf("decoding meta %s: %w", key, err)
	}
	val := tx.Bucket(bucketBlobs).Get(key)
	if val == nil {
		return fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	rec.Data = make([]byte, len(val))
	copy(rec.Data, val)
	return nil
}
