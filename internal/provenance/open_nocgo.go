//go:build !cgo

package provenance

import "errors"

// ErrPersistenceUnavailable is returned when a store path is requested in a
// build without cgo.
var ErrPersistenceUnavailable = errors.New("provenance: persistent store requires cgo")

// Open returns an in-memory store. Persistence needs KuzuDB, which is only
// available with cgo.
func Open(path string) (Store, error) {
	if path != "" {
		return nil, ErrPersistenceUnavailable
	}
	return NewMemStore(), nil
}
