// Package assets locates model files shipped alongside the binary.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// searchDirs lists the fixed locations probed for model assets, in order.
// An explicit MODEL_DIR always wins.
var searchDirs = []string{
	"models",
	filepath.Join("assets", "models"),
	filepath.Join("deploy", "models"),
}

// Resolve returns the first existing path for filename among the configured
// search locations.
func Resolve(filename string) (string, error) {
	dirs := searchDirs
	if env := os.Getenv("MODEL_DIR"); env != "" {
		dirs = append([]string{env}, dirs...)
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("unable to locate model asset %q in %v", filename, dirs)
}
