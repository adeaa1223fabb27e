package model

import (
	"os"
	"path/filepath"
)

// HomeDir is the per-user tradeline directory (config, cache, sqlite store)
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tradeline"
	}
	return filepath.Join(home, ".tradeline")
}

func defaultCacheDir() string {
	return filepath.Join(HomeDir(), "cache")
}
