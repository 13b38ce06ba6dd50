package provenance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	order    []string
	packages map[string]PackageNode
	entries  map[string]EntryNode
	// provides maps entry key to the ids of the packages that declared it.
	provides map[string][]string
	edges    int
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	m := &MemStore{}
	m.reset()
	return m
}

func (m *MemStore) reset() {
	m.order = nil
	m.packages = make(map[string]PackageNode)
	m.entries = make(map[string]EntryNode)
	m.provides = make(map[string][]string)
	m.edges = 0
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error { return nil }

// Reset clears all data.
func (m *MemStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

// AddPackage stores pkg keyed by id.
func (m *MemStore) AddPackage(_ context.Context, pkg PackageNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[pkg.ID]; !ok {
		m.order = append(m.order, pkg.ID)
	}
	m.packages[pkg.ID] = pkg
	return nil
}

// AddEntry stores entry keyed by tag and id.
func (m *MemStore) AddEntry(_ context.Context, entry EntryNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key()] = entry
	return nil
}

// AddProvides links packageID to entryKey. Both ends must exist.
func (m *MemStore) AddProvides(_ context.Context, packageID, entryKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[packageID]; !ok {
		return fmt.Errorf("provenance: provides: package %q: %w", packageID, ErrNotFound)
	}
	if _, ok := m.entries[entryKey]; !ok {
		return fmt.Errorf("provenance: provides: entry %q: %w", entryKey, ErrNotFound)
	}
	m.provides[entryKey] = append(m.provides[entryKey], packageID)
	m.edges++
	return nil
}

// Packages returns every package in insertion order.
func (m *MemStore) Packages(_ context.Context) ([]PackageNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PackageNode, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.packages[id])
	}
	return out, nil
}

// EntriesOf returns the entries packageID provided, sorted by key.
func (m *MemStore) EntriesOf(_ context.Context, packageID string) ([]EntryNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []EntryNode
	for key, ids := range m.provides {
		for _, id := range ids {
			if id == packageID {
				out = append(out, m.entries[key])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Key(), out[j].Key()) < 0
	})
	return out, nil
}

// ProviderOf returns the first package that declared the entry.
func (m *MemStore) ProviderOf(_ context.Context, tag, id string) (*PackageNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.provides[EntryKey(tag, id)]
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	pkg := m.packages[ids[0]]
	return &pkg, nil
}

// Stats returns node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{
		PackageCount:  len(m.packages),
		EntryCount:    len(m.entries),
		ProvidesCount: m.edges,
	}, nil
}

// Close is a no-op.
func (m *MemStore) Close() error { return nil }
