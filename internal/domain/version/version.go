package version

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Size is the width of an encoded version key in bytes.
const Size = 4

// NoPrerelease marks a release build in the prerelease byte.
const NoPrerelease = 0xff

// MaxField is the largest value a single version field may hold.
const MaxField = 254

var (
	ErrDecode     = errors.New("malformed version key")
	ErrOutOfRange = errors.New("version field out of range")
)

// semverPattern accepts "1.2.3", "1.2.3-4" and "1.2.3-pre.4".
var semverPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-(?:[a-zA-Z]+\.)?(\d+))?$`)

// Key is a packed version: major, minor, patch, prerelease.
//
// A release stores 0xff in the prerelease byte, so it sorts after all of
// its own prereleases. Byte-wise comparison is the only ordering used.
type Key [Size]byte

// Zero is the key 0.0.0-0, lower than any key produced by New.
var Zero Key

// New encodes a release version.
func New(major, minor, patch int) (Key, error) {
	return build(major, minor, patch, NoPrerelease)
}

// NewPrerelease encodes a prerelease version.
func NewPrerelease(major, minor, patch, pre int) (Key, error) {
	if pre < 0 || pre > MaxField {
		return Key{}, fmt.Errorf("%w: prerelease %d", ErrOutOfRange, pre)
	}
	return build(major, minor, patch, pre)
}

// MustNew is New for constant inputs; it panics on error.
func MustNew(major, minor, patch int) Key {
	k, err := New(major, minor, patch)
	if err != nil {
		panic(err)
	}
	return k
}

func build(major, minor, patch, pre int) (Key, error) {
	for _, f := range []struct {
		name  string
		value int
	}{{"major", major}, {"minor", minor}, {"patch", patch}} {
		if f.value < 0 || f.value > MaxField {
			return Key{}, fmt.Errorf("%w: %s %d", ErrOutOfRange, f.name, f.value)
		}
	}
	return Key{byte(major), byte(minor), byte(patch), byte(pre)}, nil
}

// Decode reads a key from its 4-byte wire form.
func Decode(b []byte) (Key, error) {
	if len(b) != Size {
		return Key{}, fmt.Errorf("%w: want %d bytes, got %d", ErrDecode, Size, len(b))
	}
	var k Key
	copy(k[:], b)
	if k[0] > MaxField || k[1] > MaxField || k[2] > MaxField {
		return Key{}, fmt.Errorf("%w: %x", ErrDecode, b)
	}
	return k, nil
}

// ParseHex decodes the "0x010203ff" form.
func ParseHex(s string) (Key, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrDecode, s)
	}
	return Decode(b)
}

// Parse accepts either the hex wire form or a semver string.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return ParseHex(s)
	}

	m := semverPattern.FindStringSubmatch(s)
	if m == nil {
		return Key{}, fmt.Errorf("%w: %q", ErrDecode, s)
	}

	nums := make([]int, 0, 4)
	for _, part := range m[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", ErrDecode, s)
		}
		nums = append(nums, n)
	}

	if len(nums) == 4 {
		return NewPrerelease(nums[0], nums[1], nums[2], nums[3])
	}
	return New(nums[0], nums[1], nums[2])
}

func (k Key) Major() int { return int(k[0]) }
func (k Key) Minor() int { return int(k[1]) }
func (k Key) Patch() int { return int(k[2]) }

// Prerelease returns the prerelease ordinal and whether one is set.
func (k Key) Prerelease() (int, bool) {
	if k[3] == NoPrerelease {
		return 0, false
	}
	return int(k[3]), true
}

// IsPrerelease reports whether the key carries a prerelease ordinal.
func (k Key) IsPrerelease() bool {
	return k[3] != NoPrerelease
}

// Compare returns -1, 0 or +1.
func (k Key) Compare(other Key) int {
	for i := 0; i < Size; i++ {
		switch {
		case k[i] < other[i]:
			return -1
		case k[i] > other[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether k orders before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// Bytes returns the wire form.
func (k Key) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, k[:])
	return b
}

// Hex returns the "0x" prefixed wire form.
func (k Key) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

// String renders the semver form.
func (k Key) String() string {
	base := fmt.Sprintf("%d.%d.%d", k[0], k[1], k[2])
	if pre, ok := k.Prerelease(); ok {
		return fmt.Sprintf("%s-%d", base, pre)
	}
	return base
}

// MarshalText emits the hex wire form.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

// UnmarshalText accepts hex or semver.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
