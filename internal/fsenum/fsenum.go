// Package fsenum lists directory entries for the loaders.
package fsenum

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NameMode selects the form of returned names.
type NameMode int

const (
	// FullPath returns dir-joined paths.
	FullPath NameMode = iota
	// LeafName returns bare entry names.
	LeafName
)

// Enumerator lists the files and subdirectories of a directory.
type Enumerator interface {
	ListEntries(dir string, mode NameMode) (files, dirs []string, err error)
}

// OS enumerates the real filesystem. Hidden entries (leading '.') are
// skipped, results are sorted, and a missing directory yields empty lists.
type OS struct{}

// Compile-time check.
var _ Enumerator = OS{}

// ListEntries implements Enumerator.
func (OS) ListEntries(dir string, mode NameMode) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var files, dirs []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		out := name
		if mode == FullPath {
			out = filepath.Join(dir, name)
		}
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		if isDir {
			dirs = append(dirs, out)
		} else {
			files = append(files, out)
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}

// FileExists reports whether path names an existing regular file or
// directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
