package compiler

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/tree"
)

// CacheOptions configures a Cache.
type CacheOptions struct {
	// Roots are the directories whose content the checksum covers.
	Roots []string
	// Disabled bypasses memoization entirely.
	Disabled bool
	// ForceValid keeps memoized trees even when the checksum changes.
	ForceValid bool
	Logger     *slog.Logger
}

// Compile-time check.
var _ Compiler = (*Cache)(nil)

// Cache memoizes another Compiler by (path, flag set). Concurrent requests
// for the same key share one compile. Callers receive private copies, so
// moving children out of a returned tree never corrupts the cache.
type Cache struct {
	inner  Compiler
	logger *slog.Logger
	group  singleflight.Group

	mu         sync.Mutex
	entries    map[string]*tree.Node
	roots      []string
	disabled   bool
	forceValid bool
	checksum   string
	hits       int
	misses     int
}

// NewCache wraps inner.
func NewCache(inner Compiler, opts CacheOptions) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		inner:      inner,
		logger:     logger,
		entries:    make(map[string]*tree.Node),
		roots:      append([]string(nil), opts.Roots...),
		disabled:   opts.Disabled,
		forceValid: opts.ForceValid,
	}
}

// SetDisabled toggles memoization.
func (c *Cache) SetDisabled(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = disabled
}

// SetForceValid toggles whether checksum changes invalidate entries.
func (c *Cache) SetForceValid(force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forceValid = force
}

// Compile implements Compiler. Validated compiles always go to the inner
// compiler since validation only happens while building.
func (c *Cache) Compile(ctx context.Context, path string, flags flagset.Set, schema *Schema) (*tree.Node, error) {
	c.mu.Lock()
	disabled := c.disabled
	c.mu.Unlock()
	if disabled || schema != nil {
		return c.inner.Compile(ctx, path, flags, schema)
	}

	key := path + "\x00" + flags.Key()

	c.mu.Lock()
	if t, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return t.Clone(), nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		t, err := c.inner.Compile(ctx, path, flags, nil)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = t
		c.misses++
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tree.Node).Clone(), nil
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of memoized trees.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every memoized tree.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*tree.Node)
}

// Checksum returns the last computed data-tree checksum ("" before the
// first Recheck).
func (c *Cache) Checksum() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checksum
}

// Recheck recomputes the data-tree checksum and drops memoized trees when
// it changed, unless the cache is pinned valid.
func (c *Cache) Recheck() (bool, error) {
	sum, err := DataTreeChecksum(c.roots...)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.checksum != "" && c.checksum != sum
	c.checksum = sum
	if changed && !c.forceValid {
		c.logger.Info("data tree changed, dropping compiled trees", "entries", len(c.entries))
		c.entries = make(map[string]*tree.Node)
	}
	return changed, nil
}

// DataTreeChecksum hashes the path, size and modification time of every
// regular file under roots. Missing roots contribute nothing.
func DataTreeChecksum(roots ...string) (string, error) {
	h := blake3.New()
	var buf [16]byte
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			h.Write([]byte(path))
			binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))
			binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano()))
			h.Write(buf[:])
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
