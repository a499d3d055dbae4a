package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/dapplets/dapplet-registry/internal/domain/version"
)

// Account identifies a caller, owner, admin, lister or staker
type Account string

// ModuleType classifies a module
type ModuleType uint8

const (
	ModuleTypeUnknown   ModuleType = 0
	ModuleTypeFeature   ModuleType = 1
	ModuleTypeAdapter   ModuleType = 2
	ModuleTypeLibrary   ModuleType = 3
	ModuleTypeInterface ModuleType = 4
)

var moduleTypeNames = map[ModuleType]string{
	ModuleTypeFeature:   "feature",
	ModuleTypeAdapter:   "adapter",
	ModuleTypeLibrary:   "library",
	ModuleTypeInterface: "interface",
}

// String returns the lowercase type name
func (t ModuleType) String() string {
	if name, ok := moduleTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the four known types
func (t ModuleType) Valid() bool {
	_, ok := moduleTypeNames[t]
	return ok
}

// MarshalText emits the type name
func (t ModuleType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts a type name or its numeric code
func (t *ModuleType) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for k, name := range moduleTypeNames {
		if s == name || s == fmt.Sprintf("%d", k) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown module type %q", string(text))
}

// Module flags
const (
	// FlagPlaceholder marks a reservation awaiting its first real version
	FlagPlaceholder uint32 = 1 << 0
)

// StorageRef is a content-addressed pointer: a hash plus mirror URIs
type StorageRef struct {
	Hash string   `json:"hash" yaml:"hash" toml:"hash"`
	URIs []string `json:"uris" yaml:"uris" toml:"uris"`
}

// Clone returns a deep copy; nil stays nil
func (r *StorageRef) Clone() *StorageRef {
	if r == nil {
		return nil
	}
	return &StorageRef{Hash: r.Hash, URIs: append([]string(nil), r.URIs...)}
}

// ModuleInfo is the metadata of a registered module
type ModuleInfo struct {
	Name        string      `json:"name" yaml:"name" toml:"name"`
	ModuleType  ModuleType  `json:"moduleType" yaml:"moduleType" toml:"moduleType"`
	Title       string      `json:"title" yaml:"title" toml:"title"`
	Description string      `json:"description" yaml:"description" toml:"description"`
	Image       *StorageRef `json:"image,omitempty" yaml:"image,omitempty" toml:"image,omitempty"`
	Manifest    *StorageRef `json:"manifest,omitempty" yaml:"manifest,omitempty" toml:"manifest,omitempty"`
	Icon        *StorageRef `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty"`
	Interfaces  []string    `json:"interfaces" yaml:"interfaces" toml:"interfaces"`
	Flags       uint32      `json:"flags" yaml:"flags" toml:"flags"`
}

// IsPlaceholder reports whether the reservation flag is set
func (m *ModuleInfo) IsPlaceholder() bool {
	return m.Flags&FlagPlaceholder != 0
}

// Clone returns a deep copy
func (m *ModuleInfo) Clone() ModuleInfo {
	c := *m
	c.Image = m.Image.Clone()
	c.Manifest = m.Manifest.Clone()
	c.Icon = m.Icon.Clone()
	c.Interfaces = append([]string(nil), m.Interfaces...)
	return c
}

// DependencyRef points at a specific version of another module
type DependencyRef struct {
	Name    string      `json:"name" yaml:"name" toml:"name"`
	Branch  string      `json:"branch" yaml:"branch" toml:"branch"`
	Version version.Key `json:"version" yaml:"version" toml:"version"`
}

// VersionInfo is one published version of a module on a branch
type VersionInfo struct {
	Branch           string          `json:"branch" yaml:"branch" toml:"branch"`
	Version          version.Key     `json:"version" yaml:"version" toml:"version"`
	Flags            uint32          `json:"flags" yaml:"flags" toml:"flags"`
	Binary           *StorageRef     `json:"binary,omitempty" yaml:"binary,omitempty" toml:"binary,omitempty"`
	Dependencies     []DependencyRef `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	Interfaces       []DependencyRef `json:"interfaces" yaml:"interfaces" toml:"interfaces"`
	ExtensionVersion version.Key     `json:"extensionVersion" yaml:"extensionVersion" toml:"extensionVersion"`
	CreatedAt        time.Time       `json:"createdAt" yaml:"createdAt" toml:"createdAt"`
}

// Clone returns a deep copy
func (v *VersionInfo) Clone() VersionInfo {
	c := *v
	c.Binary = v.Binary.Clone()
	c.Dependencies = append([]DependencyRef(nil), v.Dependencies...)
	c.Interfaces = append([]DependencyRef(nil), v.Interfaces...)
	return c
}
