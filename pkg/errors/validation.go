package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateArtifactName validates an image filename taken from an item record.
// The name is joined onto the images directory, so it must stay inside it.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 255 characters
//   - No null bytes or control characters
//   - No absolute paths
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateArtifactName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidRecord, "image name cannot be empty")
	}

	const maxNameLength = 255
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidRecord, "image name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRecord, "image name contains invalid control characters")
		}
	}

	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return New(ErrCodeInvalidRecord, "image name must be relative: %q", name)
	}

	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return New(ErrCodeInvalidRecord, "image name cannot contain path traversal sequences (..): %q", name)
		}
	}

	if strings.Contains(name, "\\") {
		return New(ErrCodeInvalidRecord, "image name cannot contain backslashes: %q", name)
	}

	return nil
}

// ValidateDimensions checks that a width/height pair describes a usable
// pixel envelope. The label names the setting in error messages.
func ValidateDimensions(label string, width, height int) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be positive, got %dx%d", label, width, height)
	}
	const maxSide = 1 << 15
	if width > maxSide || height > maxSide {
		return New(ErrCodeInvalidConfig, "%s too large (max %d per side), got %dx%d", label, maxSide, width, height)
	}
	return nil
}

// ValidateQuality checks that an encoder quality lies in [0, 100].
func ValidateQuality(quality int) error {
	if quality < 0 || quality > 100 {
		return New(ErrCodeInvalidConfig, "quality must be between 0 and 100, got %d", quality)
	}
	return nil
}

// ValidateDir checks that a directory path is set. Existence is checked by
// the stage that owns it, because some directories are created on demand.
func ValidateDir(label, path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "%s directory cannot be empty", label)
	}
	for _, r := range path {
		if r == '\x00' {
			return New(ErrCodeInvalidPath, "%s directory contains a null byte", label)
		}
	}
	return nil
}
