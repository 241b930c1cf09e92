package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetAbsolutePath resolves a path against the current working directory.
// Absolute paths are only cleaned.
func GetAbsolutePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	// Get the current working directory
	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	// Join the current working directory with the relative path
	return filepath.Join(root, path), nil
}
