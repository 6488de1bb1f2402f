package errors

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSourceBytes bounds the size of a program accepted by the parser and the
// trace provider.
const MaxSourceBytes = 256 << 10

// ValidateSource validates program text before it is parsed.
//
// Validation rules:
//   - Source cannot be empty or whitespace only
//   - Source must be valid UTF-8
//   - No null bytes
//   - Maximum size of MaxSourceBytes
func ValidateSource(src []byte) error {
	if len(strings.TrimSpace(string(src))) == 0 {
		return New(ErrCodeInvalidInput, "source code cannot be empty")
	}

	if len(src) > MaxSourceBytes {
		return New(ErrCodeSourceTooLarge, "source too large (max %d bytes)", MaxSourceBytes)
	}

	if !utf8.Valid(src) {
		return New(ErrCodeInvalidInput, "source code must be valid UTF-8")
	}

	if strings.ContainsRune(string(src), '\x00') {
		return New(ErrCodeInvalidInput, "source code contains null bytes")
	}

	return nil
}

// ValidatePath validates a file path for safety.
// It prevents path traversal and ensures reasonable path length.
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

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
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

// sessionIDRegex matches the canonical textual form of a UUID.
var sessionIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateSessionID validates a session identifier received from a client.
// Rejecting anything that is not a lowercase UUID keeps IDs safe to use as
// file names and database keys.
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session ID cannot be empty")
	}
	if !sessionIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid session ID: %q", id)
	}
	return nil
}

// identRegex matches a Python identifier restricted to ASCII.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateVariableName validates the name side of a variable binding.
func ValidateVariableName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "variable name cannot be empty")
	}
	if !identRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid variable name: %q", name)
	}
	return nil
}
