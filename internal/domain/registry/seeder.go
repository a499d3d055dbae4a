package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/domain/version"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// DefaultSeedPattern matches manifest files anywhere below the seed root
const DefaultSeedPattern = "**/*.{json,yaml,yml,toml}"

// SeedManifest describes one module to bootstrap
type SeedManifest struct {
	Owner      types.Account    `json:"owner" yaml:"owner" toml:"owner"`
	Module     types.ModuleInfo `json:"module" yaml:"module" toml:"module"`
	ContextIDs []string         `json:"contextIds" yaml:"contextIds" toml:"contextIds"`
	Versions   []SeedVersion    `json:"versions" yaml:"versions" toml:"versions"`
	// List appends the module to the end of the owner's listing
	List bool `json:"list" yaml:"list" toml:"list"`
}

// SeedVersion is a version whose binary may be a local file, hashed on load
type SeedVersion struct {
	Branch           string                `json:"branch" yaml:"branch" toml:"branch"`
	Version          version.Key           `json:"version" yaml:"version" toml:"version"`
	Binary           *types.StorageRef     `json:"binary,omitempty" yaml:"binary,omitempty" toml:"binary,omitempty"`
	BinaryFile       string                `json:"binaryFile,omitempty" yaml:"binaryFile,omitempty" toml:"binaryFile,omitempty"`
	Dependencies     []types.DependencyRef `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	Interfaces       []types.DependencyRef `json:"interfaces" yaml:"interfaces" toml:"interfaces"`
	ExtensionVersion version.Key           `json:"extensionVersion" yaml:"extensionVersion" toml:"extensionVersion"`
}

// SeedBinary records a local binary that was hashed
type SeedBinary struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
	MIME string `json:"mime"`
}

// SeedReport summarizes a Seed run
type SeedReport struct {
	Created  []string     `json:"created"`
	Skipped  []string     `json:"skipped"`
	Binaries []SeedBinary `json:"binaries"`
}

// Seeder bootstraps modules from a directory of manifests
type Seeder struct {
	registry *Registry
	hasher   *utils.Hasher
	pattern  string
	logger   *zap.Logger
}

// SeederOption configures a Seeder
type SeederOption func(*Seeder)

// WithSeedPattern sets the doublestar pattern selecting manifest files
func WithSeedPattern(pattern string) SeederOption {
	return func(s *Seeder) { s.pattern = pattern }
}

// WithSeedLogger sets the logger
func WithSeedLogger(l *zap.Logger) SeederOption {
	return func(s *Seeder) { s.logger = l }
}

// NewSeeder creates a seeder writing into r
func NewSeeder(r *Registry, opts ...SeederOption) *Seeder {
	s := &Seeder{
		registry: r,
		hasher:   utils.DefaultHasher(),
		pattern:  DefaultSeedPattern,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns the manifest files below root, sorted by path
func (s *Seeder) Discover(ctx context.Context, root string) ([]string, error) {
	if !doublestar.ValidatePattern(s.pattern) {
		return nil, fmt.Errorf("invalid seed pattern %q", s.pattern)
	}

	var (
		mu    sync.Mutex
		found []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(s.pattern, filepath.ToSlash(rel)); ok {
			mu.Lock()
			found = append(found, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover seeds in %s: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

// LoadManifest decodes a manifest by file extension
func LoadManifest(path string) (*SeedManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m SeedManifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = sonic.Unmarshal(data, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// Seed creates every module described below root. Modules that already
// exist are skipped, so seeding twice is harmless.
func (s *Seeder) Seed(ctx context.Context, root string) (*SeedReport, error) {
	paths, err := s.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &SeedReport{Created: []string{}, Skipped: []string{}, Binaries: []SeedBinary{}}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		manifest, err := LoadManifest(path)
		if err != nil {
			return report, err
		}
		req, binaries, err := s.resolve(filepath.Dir(path), manifest)
		if err != nil {
			return report, fmt.Errorf("seed %s: %w", path, err)
		}

		if manifest.List {
			req.Links = appendLinks(s.registry.GetModuleNamesOfListing(manifest.Owner), req.Module.Name)
		}

		_, err = s.registry.CreateModule(manifest.Owner, req)
		if errors.Is(err, ErrDuplicateName) {
			s.logger.Debug("seed module exists", zap.String("module", req.Module.Name))
			report.Skipped = append(report.Skipped, req.Module.Name)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("seed %s: %w", path, err)
		}

		s.logger.Info("seeded module",
			zap.String("module", req.Module.Name),
			zap.String("owner", string(manifest.Owner)),
			zap.Int("versions", len(req.Versions)))
		report.Created = append(report.Created, req.Module.Name)
		report.Binaries = append(report.Binaries, binaries...)
	}
	return report, nil
}

func (s *Seeder) resolve(dir string, m *SeedManifest) (types.CreateModuleRequest, []SeedBinary, error) {
	req := types.CreateModuleRequest{
		Module:     m.Module,
		ContextIDs: m.ContextIDs,
		Versions:   make([]types.VersionInfo, 0, len(m.Versions)),
	}

	var binaries []SeedBinary
	for _, sv := range m.Versions {
		v := types.VersionInfo{
			Branch:           sv.Branch,
			Version:          sv.Version,
			Binary:           sv.Binary,
			Dependencies:     sv.Dependencies,
			Interfaces:       sv.Interfaces,
			ExtensionVersion: sv.ExtensionVersion,
		}
		if v.Branch == "" {
			v.Branch = "default"
		}

		if sv.BinaryFile != "" {
			path := sv.BinaryFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			bin, err := s.hashFile(path)
			if err != nil {
				return req, nil, err
			}
			binaries = append(binaries, bin)
			v.Binary = &types.StorageRef{Hash: bin.Hash, URIs: []string{"file://" + filepath.ToSlash(path)}}
		}
		req.Versions = append(req.Versions, v)
	}
	return req, binaries, nil
}

func (s *Seeder) hashFile(path string) (SeedBinary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedBinary{}, fmt.Errorf("read binary: %w", err)
	}
	return SeedBinary{
		Path: path,
		Hash: s.hasher.Hash(data),
		MIME: mimetype.Detect(data).String(),
	}, nil
}

// appendLinks builds the patch placing name after the last listed module
func appendLinks(listed []string, name string) []types.Link {
	last := types.Head
	if len(listed) > 0 {
		last = listed[len(listed)-1]
	}
	return []types.Link{
		{Prev: last, Next: name},
		{Prev: name, Next: types.Tail},
	}
}
