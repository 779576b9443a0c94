// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDir returns the absolute path to the data directory, creating it when
// necessary. Empty dir selects $HOME/.vinbot.
func DataDir(dir string) (string, error) {
	if len(dir) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".vinbot")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("could not create data directory %q: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", dir, err)
	}
	return abs, nil
}
