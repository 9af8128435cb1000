package errors

import (
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidateIdentifier validates a project or version identifier (ID or slug)
// before it is sent to the registry.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 64 characters (the registry slug limit)
func ValidateIdentifier(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "identifier too long (max 64 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "identifier contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"?",    // Query injection
		"#",    // Fragment injection
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "identifier contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateFilename validates a filename received from the registry.
// It must be a plain basename so it can be joined onto a cache or
// destination directory without escaping it.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidFilename, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") || filepath.Base(filename) != filename {
		return New(ErrCodeInvalidFilename, "filename cannot contain path separators: %q", filename)
	}

	if filename == "." || filename == ".." {
		return New(ErrCodeInvalidFilename, "filename cannot be a directory reference: %q", filename)
	}

	for _, r := range filename {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "filename contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

var hexRegex = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ValidateHexDigest validates a hex-encoded digest of the given byte size
// (20 for SHA-1, 32 for SHA-256, 64 for SHA-512).
func ValidateHexDigest(digest string, size int) error {
	if len(digest) != hex.EncodedLen(size) {
		return New(ErrCodeInvalidHash, "digest must be %d hex characters, got %d", hex.EncodedLen(size), len(digest))
	}
	if !hexRegex.MatchString(digest) {
		return New(ErrCodeInvalidHash, "digest contains non-hex characters")
	}
	return nil
}
