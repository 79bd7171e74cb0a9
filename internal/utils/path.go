package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// invalidNameChars are characters that cannot appear in file or directory
// names on the supported platforms.
const invalidNameChars = `<>:"/\|?*`

// SanitizeName replaces characters that are illegal in filenames with
// underscores and trims surrounding whitespace.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(invalidNameChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizePath ensures that the provided path stays within the base
// directory. Relative paths are joined with baseDir; absolute paths must
// already be contained in it.
func SanitizePath(userPath string, baseDir string) (string, error) {
	cleanPath := filepath.Clean(userPath)

	var finalPath string
	if filepath.IsAbs(cleanPath) {
		finalPath = cleanPath
	} else {
		finalPath = filepath.Join(baseDir, cleanPath)
	}

	rel, err := filepath.Rel(baseDir, finalPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt: path outside download directory")
	}

	return finalPath, nil
}
