package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, opts ...BoltOption) *BoltStore {
	t.Helper()
	opts = append([]BoltOption{WithNoSync(true)}, opts...)
	store := NewBoltStore(opts...)
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "registry.db")))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltStoreEmpty(t *testing.T) {
	store := openStore(t)

	_, err := store.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	metas, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestBoltStorePutAndRetention(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := openStore(t, WithRetention(2), WithNow(func() time.Time { return now }))
	ctx := context.Background()

	var metas []Meta
	for i, payload := range []string{"first", "second", "third"} {
		meta, err := store.Put(ctx, DefaultCodec, i, []byte(payload))
		require.NoError(t, err)
		assert.Equal(t, len(payload), meta.Size)
		assert.Equal(t, now, meta.CreatedAt)
		metas = append(metas, meta)
	}

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, metas[2].ID, latest.ID)
	assert.Equal(t, []byte("third"), latest.Data)
	assert.Equal(t, FormatJSON, latest.Format)
	assert.Equal(t, CompressionZstd, latest.Compression)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, metas[2].ID, listed[0].ID)
	assert.Equal(t, metas[1].ID, listed[1].ID)

	_, err = store.Get(ctx, metas[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "snap_bogus")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := store.Get(ctx, metas[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), rec.Data)
	assert.Equal(t, 1, rec.Modules)
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	store := NewBoltStore()
	require.NoError(t, store.Open(path))
	meta, err := store.Put(ctx, DefaultCodec, 1, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewBoltStore()
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()

	rec, err := reopened.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, rec.ID)
	assert.Equal(t, []byte("payload"), rec.Data)
}

func TestBoltStoreCancelledContext(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, DefaultCodec, 0, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
