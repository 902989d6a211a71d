package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureFilepathExists creates the directory for a given file path if it does
// not exist. No-op for paths in the current directory.
func EnsureFilepathExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
