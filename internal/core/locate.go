package core

import (
	"path/filepath"
	"strings"

	"github.com/dusk-indust/layercfg/internal/fsenum"
)

// Locator maps a content path as written in descriptors to a filesystem
// path and reports whether it exists.
type Locator interface {
	Locate(path string) (string, bool)
}

// DirLocator resolves "~"-prefixed paths under the user data directory and
// every other relative path under the data directory.
type DirLocator struct {
	DataDir     string
	UserDataDir string
}

// Compile-time check.
var _ Locator = DirLocator{}

// Locate implements Locator.
func (l DirLocator) Locate(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	var full string
	switch {
	case strings.HasPrefix(path, "~"):
		full = filepath.Join(l.UserDataDir, strings.TrimLeft(path[1:], "/"))
	case filepath.IsAbs(path):
		full = filepath.Clean(path)
	default:
		full = filepath.Join(l.DataDir, path)
	}
	return full, fsenum.FileExists(full)
}
