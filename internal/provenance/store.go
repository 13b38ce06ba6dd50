// Package provenance records which extension package provided which entry
// declaration, so surfaces can answer "where did this come from".
package provenance

import (
	"context"
	"errors"
	"io"
)

// Store is the provenance graph backend.
// Implementations: KuzuStore (cgo builds), MemStore.
type Store interface {
	io.Closer

	// InitSchema is called once before any data is inserted.
	InitSchema(ctx context.Context) error
	// Reset drops everything recorded by a previous resolution.
	Reset(ctx context.Context) error

	AddPackage(ctx context.Context, pkg PackageNode) error
	AddEntry(ctx context.Context, entry EntryNode) error
	// AddProvides links a package to an entry it declared.
	AddProvides(ctx context.Context, packageID, entryKey string) error

	Packages(ctx context.Context) ([]PackageNode, error)
	EntriesOf(ctx context.Context, packageID string) ([]EntryNode, error)
	// ProviderOf returns ErrNotFound when no package declared the entry.
	ProviderOf(ctx context.Context, tag, id string) (*PackageNode, error)

	Stats(ctx context.Context) (*Stats, error)
}

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("provenance: not found")

// PackageNode is one loaded extension package.
type PackageNode struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version string `json:"version"`
	Core    string `json:"core"`
	Enabled bool   `json:"enabled"`
}

// EntryNode is one entry declaration moved into the base tree.
type EntryNode struct {
	Tag  string `json:"tag"`
	ID   string `json:"id"`
	Hash string `json:"hash,omitempty"`
}

// Key is the entry's unique key.
func (e EntryNode) Key() string { return EntryKey(e.Tag, e.ID) }

// EntryKey builds the unique key of an entry.
func EntryKey(tag, id string) string { return tag + ":" + id }

// Stats summarizes a provenance graph.
type Stats struct {
	PackageCount  int `json:"packageCount"`
	EntryCount    int `json:"entryCount"`
	ProvidesCount int `json:"providesCount"`
}

// Record is what one package contributed.
type Record struct {
	Package PackageNode
	Entries []EntryNode
}

// Replace resets s and writes records in order. An entry declared by more
// than one package is attributed to every declaring package.
func Replace(ctx context.Context, s Store, records []Record) error {
	if err := s.Reset(ctx); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, r := range records {
		if err := s.AddPackage(ctx, r.Package); err != nil {
			return err
		}
		for _, e := range r.Entries {
			if !seen[e.Key()] {
				if err := s.AddEntry(ctx, e); err != nil {
					return err
				}
				seen[e.Key()] = true
			}
			if err := s.AddProvides(ctx, r.Package.ID, e.Key()); err != nil {
				return err
			}
		}
	}
	return nil
}
