//go:build cgo

package provenance

// Open returns a KuzuDB-backed store, persisted when path is set.
func Open(path string) (Store, error) {
	if path == "" {
		return NewKuzuStore()
	}
	return NewKuzuFileStore(path)
}
