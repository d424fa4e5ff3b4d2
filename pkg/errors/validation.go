package errors

import (
	"slices"
	"strings"
	"unicode"
)

// ValidateLabel validates a genotype or column label.
// Labels must be non-empty after trimming and free of control characters.
func ValidateLabel(kind, label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", kind)
	}
	if len(label) > 256 {
		return New(ErrCodeInvalidInput, "%s too long (max 256 characters)", kind)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s %q contains control characters", kind, label)
		}
	}
	return nil
}

// ValidateEnum checks that value is one of allowed, returning an error with
// the given code otherwise. Matching is case-insensitive.
func ValidateEnum(code Code, kind, value string, allowed ...string) error {
	v := strings.ToLower(strings.TrimSpace(value))
	if slices.Contains(allowed, v) {
		return nil
	}
	return New(code, "invalid %s %q (want one of %s)", kind, value, strings.Join(allowed, ", "))
}

// ValidateMin checks that n is at least min.
func ValidateMin(code Code, kind string, n, min int) error {
	if n < min {
		return New(code, "at least %d %s required, got %d", min, kind, n)
	}
	return nil
}

// ValidatePath validates an output path supplied by a remote caller.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
