package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/sha3"
)

// HashAlgorithm names a content digest for StorageRef hashes
type HashAlgorithm string

const (
	Keccak256 HashAlgorithm = "keccak256"
	SHA256    HashAlgorithm = "sha256"
)

var hashFuncs = map[HashAlgorithm]func() hash.Hash{
	Keccak256: sha3.NewLegacyKeccak256,
	SHA256:    sha256.New,
}

// Hasher produces the 0x-prefixed 32-byte digests ValidateHash accepts.
type Hasher struct {
	algorithm HashAlgorithm
	newHash   func() hash.Hash
}

// NewHasher returns a hasher for algorithm
func NewHasher(algorithm HashAlgorithm) (*Hasher, error) {
	fn, ok := hashFuncs[algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
	return &Hasher{algorithm: algorithm, newHash: fn}, nil
}

// DefaultHasher returns the Keccak-256 hasher used for module binaries
func DefaultHasher() *Hasher {
	return &Hasher{algorithm: Keccak256, newHash: sha3.NewLegacyKeccak256}
}

func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

// Hash digests data
func (h *Hasher) Hash(data []byte) string {
	d := h.newHash()
	d.Write(data)
	return "0x" + hex.EncodeToString(d.Sum(nil))
}

// HashReader digests everything read from r
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	d := h.newHash()
	if _, err := io.Copy(d, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return "0x" + hex.EncodeToString(d.Sum(nil)), nil
}

// Verify reports whether data matches expected, ignoring hex case
func (h *Hasher) Verify(data []byte, expected string) bool {
	return strings.EqualFold(h.Hash(data), expected)
}
