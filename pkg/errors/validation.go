package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// segmentRegex matches a single valid repository path segment: owner,
// organization, project, or repository names.
var segmentRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateSegment validates a single repository path segment (owner,
// org, project, or repo name). Segments appear in install paths, so the
// allowed charset is intentionally conservative.
func ValidateSegment(name string) error {
	if name == "" {
		return New(ErrCodeInvalidReference, "path segment cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidReference, "path segment too long (max 256 characters)")
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidReference, "path segment cannot be a dot sequence: %q", name)
	}

	if !segmentRegex.MatchString(name) {
		return New(ErrCodeInvalidReference, "path segment contains invalid characters: %q", name)
	}

	return nil
}

// ValidateAlias validates a dependency alias. Aliases share the segment
// charset since they can name install directories.
func ValidateAlias(alias string) error {
	if err := ValidateSegment(alias); err != nil {
		return New(ErrCodeInvalidReference, "invalid alias: %q", alias)
	}
	return nil
}

// ValidatePath validates a file path within a repository for safety.
// It prevents path traversal attacks and ensures reasonable path length.
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

// gitRefRegex matches characters allowed in git refs the engine accepts:
// branch names, tags, and commit SHAs.
var gitRefRegex = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// ValidateGitRef validates a git reference (branch, tag, or commit).
func ValidateGitRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidReference, "git reference cannot be empty")
	}

	if len(ref) > 256 {
		return New(ErrCodeInvalidReference, "git reference too long (max 256 characters)")
	}

	if strings.Contains(ref, "..") {
		return New(ErrCodeInvalidReference, "git reference cannot contain dot sequences")
	}

	if !gitRefRegex.MatchString(ref) {
		return New(ErrCodeInvalidReference, "git reference contains invalid characters: %q", ref)
	}

	return nil
}
