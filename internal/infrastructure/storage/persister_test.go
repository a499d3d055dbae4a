package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/domain/version"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

const alice types.Account = "alice"

func createModule(t *testing.T, r *registry.Registry, name string) {
	t.Helper()
	_, err := r.CreateModule(alice, types.CreateModuleRequest{
		Module:     types.ModuleInfo{Name: name, ModuleType: types.ModuleTypeFeature, Title: name},
		Versions:   []types.VersionInfo{{Branch: "default", Version: version.MustNew(1, 0, 0)}},
		ContextIDs: []string{"twitter.com"},
	})
	require.NoError(t, err)
}

func TestPersisterSaveAndLoad(t *testing.T) {
	for _, codec := range []Codec{DefaultCodec, {Format: FormatJSON, Compression: CompressionGzip}} {
		t.Run(string(codec.Compression), func(t *testing.T) {
			store := openStore(t)
			ctx := context.Background()

			src := registry.New()
			createModule(t, src, "adapter")
			require.NoError(t, src.ChangeMyListing(alice, types.ChainLinks([]string{"adapter"})))

			var sizes []int
			p := NewPersister(src, store, WithCodec(codec), WithObserver(func(size int, err error) {
				require.NoError(t, err)
				sizes = append(sizes, size)
			}))
			meta, err := p.Save(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, meta.Modules)
			assert.Equal(t, []int{meta.Size}, sizes)

			dst := registry.New()
			loaded, err := NewPersister(dst, store).Load(ctx)
			require.NoError(t, err)
			assert.True(t, loaded)

			details, err := dst.GetModuleByName("adapter")
			require.NoError(t, err)
			assert.Equal(t, alice, details.Owner)
			assert.Equal(t, []string{"adapter"}, dst.GetModuleNamesOfListing(alice))
			assert.Equal(t, []string{"adapter"}, dst.GetModulesByContext("twitter.com"))
		})
	}
}

func TestPersisterLoadEmptyStore(t *testing.T) {
	loaded, err := NewPersister(registry.New(), openStore(t)).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestPersisterLoadIntoPopulatedRegistry(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	src := registry.New()
	createModule(t, src, "adapter")
	_, err := NewPersister(src, store).Save(ctx)
	require.NoError(t, err)

	_, err = NewPersister(src, store).Load(ctx)
	assert.ErrorIs(t, err, registry.ErrNotEmpty)
}

func TestPersisterStartStop(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	r := registry.New()

	p := NewPersister(r, store)
	p.Start(ctx)
	createModule(t, r, "adapter")
	createModule(t, r, "feature")
	require.NoError(t, p.Stop(ctx))

	rec, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Modules)

	// No writes after Stop
	createModule(t, r, "late")
	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, latest.ID)

	assert.NoError(t, p.Stop(ctx))
}
