//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

// CacheDir resolves the tile cache directory on macOS:
// ~/Library/Caches/<appName>/tiles.
func CacheDir(appName string) (string, error) {
	return filepath.Join(os.Getenv("HOME"), "Library", "Caches", appName, "tiles"), nil
}
