package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

const adapterManifest = `owner: alice
list: true
module:
  name: twitter-adapter
  moduleType: adapter
  title: Twitter Adapter
contextIds:
  - twitter.com
versions:
  - branch: default
    version: 1.0.0
    binaryFile: bin/adapter.js
`

const darkModeManifest = `owner = "bob"
contextIds = ["twitter-adapter"]

[module]
name = "dark-mode"
moduleType = "feature"
title = "Dark Mode"

[[versions]]
branch = "default"
version = "0x010000ff"
`

const filterManifest = `{
  "owner": "alice",
  "list": true,
  "module": {"name": "tweet-filter", "moduleType": "feature", "title": "Tweet Filter"},
  "contextIds": ["twitter-adapter"],
  "versions": [
    {"version": "0.1.0", "dependencies": [{"name": "twitter-adapter", "branch": "default", "version": "1.0.0"}]}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seedDir(t *testing.T) (string, []byte) {
	t.Helper()
	dir := t.TempDir()
	binary := []byte("export default function adapter() {}\n")

	writeFile(t, filepath.Join(dir, "a-adapter", "manifest.yaml"), adapterManifest)
	writeFile(t, filepath.Join(dir, "a-adapter", "bin", "adapter.js"), string(binary))
	writeFile(t, filepath.Join(dir, "b-dark-mode.toml"), darkModeManifest)
	writeFile(t, filepath.Join(dir, "c", "filter.json"), filterManifest)
	writeFile(t, filepath.Join(dir, "README.md"), "not a manifest")
	return dir, binary
}

func TestSeederDiscover(t *testing.T) {
	dir, _ := seedDir(t)

	paths, err := NewSeeder(New()).Discover(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a-adapter", "manifest.yaml"),
		filepath.Join(dir, "b-dark-mode.toml"),
		filepath.Join(dir, "c", "filter.json"),
	}, paths)

	paths, err = NewSeeder(New(), WithSeedPattern("*.toml")).Discover(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b-dark-mode.toml")}, paths)

	_, err = NewSeeder(New(), WithSeedPattern("[")).Discover(context.Background(), dir)
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	dir, binary := seedDir(t)
	r := New()
	seeder := NewSeeder(r)

	report, err := seeder.Seed(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"twitter-adapter", "dark-mode", "tweet-filter"}, report.Created)
	assert.Empty(t, report.Skipped)

	require.Len(t, report.Binaries, 1)
	hash := utils.DefaultHasher().Hash(binary)
	assert.Equal(t, hash, report.Binaries[0].Hash)
	assert.Contains(t, report.Binaries[0].MIME, "text/plain")

	v, err := r.GetVersionsByModule("twitter-adapter", "default", types.All)
	require.NoError(t, err)
	require.Len(t, v.Versions, 1)
	require.NotNil(t, v.Versions[0].Binary)
	assert.Equal(t, hash, v.Versions[0].Binary.Hash)

	details, err := r.GetModuleByName("dark-mode")
	require.NoError(t, err)
	assert.Equal(t, types.Account("bob"), details.Owner)
	assert.Equal(t, types.ModuleTypeFeature, details.Module.ModuleType)

	ok, err := r.IncludesDependency("tweet-filter", "twitter-adapter")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"twitter-adapter", "tweet-filter"}, r.GetModuleNamesOfListing(alice))
	assert.ElementsMatch(t, []string{"dark-mode", "tweet-filter"}, r.GetModulesByContext("twitter-adapter"))

	report, err = seeder.Seed(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Len(t, report.Skipped, 3)
}

func TestLoadManifestUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.ini")
	writeFile(t, path, "name=x")
	_, err := LoadManifest(path)
	assert.Error(t, err)
}
