package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxSelectorLength bounds selectors accepted from the command line and the API.
// Full image references rarely exceed a few hundred bytes.
const maxSelectorLength = 512

// ValidateSelector validates a user-supplied layer selector (id, abbreviated id, or tag).
// It rejects values that cannot name any layer:
//   - No empty selectors
//   - No control characters or null bytes
//   - No whitespace
//   - Maximum length of 512 characters
//
// Whether the selector actually matches a layer is decided by the forest.
func ValidateSelector(sel string) error {
	if sel == "" {
		return New(ErrCodeInvalidSelector, "selector cannot be empty")
	}

	if len(sel) > maxSelectorLength {
		return New(ErrCodeInvalidSelector, "selector too long (max %d characters)", maxSelectorLength)
	}

	for _, r := range sel {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSelector, "selector contains invalid control characters")
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidSelector, "selector cannot contain whitespace: %q", sel)
		}
	}

	return nil
}

// snapshotIDRegex matches canonical UUID strings.
var snapshotIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateSnapshotID validates a snapshot identifier.
// Snapshot IDs double as file names in the file store, so anything that is
// not a lowercase canonical UUID is rejected.
func ValidateSnapshotID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "snapshot ID cannot be empty")
	}
	if !snapshotIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid snapshot ID: %q", id)
	}
	return nil
}

// ValidatePath validates an input file path given on the command line or in config.
//
// Validation rules:
//   - Path cannot be empty ("-" is accepted and means stdin)
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.TrimSpace(path) != path {
		return New(ErrCodeInvalidPath, "path cannot start or end with whitespace")
	}

	return nil
}
