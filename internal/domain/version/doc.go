// Package version implements the packed version keys used by the registry.
//
// A key is four bytes: major, minor, patch and a prerelease ordinal, where
// 0xff means "no prerelease". Each field holds 0-254. Because every field is
// one byte, comparing keys byte by byte is the same as comparing the version
// tuples, and a release (0xff) always outranks its own prereleases.
//
// Wire form is hex ("0x010203ff"); semver strings ("1.2.3", "1.2.3-4") are
// accepted on input.
package version
