package errors

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// MaxIDLength bounds marker and bubble identifiers.
const MaxIDLength = 256

// ValidateID validates a marker identifier from a scene file or API request.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No leading or trailing whitespace
//   - Maximum length of MaxIDLength bytes
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}

	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidID, "id too long (max %d characters)", MaxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "id %q contains control characters", id)
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidID, "id %q has surrounding whitespace", id)
	}

	return nil
}

// ValidatePath validates a relative file path, such as an output file named
// in a scene script.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// urlSchemeRegex matches the scheme prefix of a URL.
var urlSchemeRegex = regexp.MustCompile(`^([a-z][a-z0-9+.-]*)://`)

// ValidateURL validates a backend URL and checks its scheme against the
// allowed list, e.g. "redis", "rediss" or "mongodb".
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	m := urlSchemeRegex.FindStringSubmatch(rawURL)
	if m == nil {
		return New(ErrCodeInvalidInput, "URL %q has no scheme", rawURL)
	}
	if len(schemes) > 0 && !slices.Contains(schemes, m[1]) {
		return New(ErrCodeInvalidInput, "URL scheme %q not supported (want one of %s)", m[1], strings.Join(schemes, ", "))
	}

	return nil
}

// ValidateFormat checks that format is one of the supported output formats.
func ValidateFormat(format string, supported ...string) error {
	if !slices.Contains(supported, format) {
		return New(ErrCodeInvalidFormat, "unsupported format %q (supported: %s)", format, strings.Join(supported, ", "))
	}
	return nil
}
