package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits (in bytes)
const (
	MaxJSONSize     = 1 * 1024 * 1024 // 1MB - maximum request body
	MaxSnapshotSize = 64 * 1024 * 1024
)

// String length limits
const (
	MaxModuleNameLength  = 128
	MaxAccountLength     = 128
	MaxBranchLength      = 64
	MaxContextLength     = 256
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxURILength         = 2048
	MaxInterfaceCount    = 32
	MaxContextCount      = 64
)

// Regular expressions for validation
var (
	// ModuleNamePattern is lowercase so the listing sentinels H and T never match
	ModuleNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	// AccountPattern allows hex addresses and named accounts
	AccountPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:-]*$`)
	// BranchPattern allows alphanumeric, dots, hyphens and underscores
	BranchPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// HashPattern is a 0x-prefixed 32 byte hex digest
	HashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

func validatePattern(value, fieldName string, maxLen int, pattern *regexp.Regexp) error {
	if err := ValidateString(value, fieldName, 1, maxLen, true); err != nil {
		return err
	}
	if !pattern.MatchString(value) {
		return fmt.Errorf("%s %q contains invalid characters", fieldName, value)
	}
	return nil
}

// ValidateModuleName validates a module name
func ValidateModuleName(name string) error {
	return validatePattern(name, "module name", MaxModuleNameLength, ModuleNamePattern)
}

// ValidateAccount validates a caller or owner account
func ValidateAccount(account string) error {
	return validatePattern(account, "account", MaxAccountLength, AccountPattern)
}

// ValidateBranch validates a branch name
func ValidateBranch(branch string) error {
	return validatePattern(branch, "branch", MaxBranchLength, BranchPattern)
}

// ValidateContextID validates a context identifier (usually a hostname)
func ValidateContextID(ctxID string) error {
	if err := ValidateString(ctxID, "context id", 1, MaxContextLength, true); err != nil {
		return err
	}
	if strings.ContainsAny(ctxID, " \t\r\n") {
		return fmt.Errorf("context id %q must not contain whitespace", ctxID)
	}
	return nil
}

// ValidateTitle validates a module title
func ValidateTitle(title string) error {
	return ValidateString(title, "title", 0, MaxTitleLength, false)
}

// ValidateDescription validates a description field
func ValidateDescription(description string) error {
	return ValidateString(description, "description", 0, MaxDescriptionLength, false)
}

// ValidateHash validates a content hash
func ValidateHash(hash string) error {
	if !HashPattern.MatchString(hash) {
		return fmt.Errorf("hash %q must be 0x followed by 64 hex digits", hash)
	}
	return nil
}

// ValidateURIs validates storage mirror URIs
func ValidateURIs(uris []string) error {
	for i, uri := range uris {
		if err := ValidateString(uri, fmt.Sprintf("uri[%d]", i), 1, MaxURILength, true); err != nil {
			return err
		}
	}
	return nil
}
