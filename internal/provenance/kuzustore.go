//go:build cgo

package provenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on an embedded KuzuDB graph.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
	seq  int64
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory database.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore persisted under dbPath. KuzuDB
// creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Package(
		id STRING,
		title STRING,
		version STRING,
		core STRING,
		enabled BOOLEAN,
		seq INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Entry(
		key STRING,
		tag STRING,
		id STRING,
		hash STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE REL TABLE IF NOT EXISTS PROVIDES(FROM Package TO Entry)`,
}

// InitSchema creates the tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Reset deletes every node and relationship.
func (s *KuzuStore) Reset(_ context.Context) error {
	s.seq = 0
	return s.exec("MATCH (n) DETACH DELETE n", nil)
}

// AddPackage inserts a Package node.
func (s *KuzuStore) AddPackage(_ context.Context, pkg PackageNode) error {
	s.seq++
	return s.exec(
		"CREATE (p:Package {id: $id, title: $title, version: $version, core: $core, enabled: $enabled, seq: $seq})",
		map[string]any{
			"id":      pkg.ID,
			"title":   pkg.Title,
			"version": pkg.Version,
			"core":    pkg.Core,
			"enabled": pkg.Enabled,
			"seq":     s.seq,
		},
	)
}

// AddEntry inserts an Entry node.
func (s *KuzuStore) AddEntry(_ context.Context, entry EntryNode) error {
	return s.exec(
		"CREATE (e:Entry {key: $key, tag: $tag, id: $id, hash: $hash})",
		map[string]any{
			"key":  entry.Key(),
			"tag":  entry.Tag,
			"id":   entry.ID,
			"hash": entry.Hash,
		},
	)
}

// AddProvides creates a PROVIDES relationship. Both ends must exist.
func (s *KuzuStore) AddProvides(_ context.Context, packageID, entryKey string) error {
	rows, err := s.query(
		`MATCH (p:Package {id: $pkg}), (e:Entry {key: $key})
		 CREATE (p)-[:PROVIDES]->(e)
		 RETURN count(*)`,
		map[string]any{"pkg": packageID, "key": entryKey},
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 || toInt(rows[0][0]) == 0 {
		return fmt.Errorf("provenance: provides %s -> %s: %w", packageID, entryKey, ErrNotFound)
	}
	return nil
}

// Packages returns every package in insertion order.
func (s *KuzuStore) Packages(_ context.Context) ([]PackageNode, error) {
	rows, err := s.query(
		"MATCH (p:Package) RETURN p.id, p.title, p.version, p.core, p.enabled ORDER BY p.seq",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]PackageNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, packageFromRow(r))
	}
	return out, nil
}

// EntriesOf returns the entries packageID provided, sorted by key.
func (s *KuzuStore) EntriesOf(_ context.Context, packageID string) ([]EntryNode, error) {
	rows, err := s.query(
		`MATCH (p:Package {id: $pkg})-[:PROVIDES]->(e:Entry)
		 RETURN e.tag, e.id, e.hash ORDER BY e.key`,
		map[string]any{"pkg": packageID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]EntryNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, EntryNode{Tag: toString(r[0]), ID: toString(r[1]), Hash: toString(r[2])})
	}
	return out, nil
}

// ProviderOf returns the earliest-loaded package that declared the entry.
func (s *KuzuStore) ProviderOf(_ context.Context, tag, id string) (*PackageNode, error) {
	rows, err := s.query(
		`MATCH (p:Package)-[:PROVIDES]->(e:Entry {key: $key})
		 RETURN p.id, p.title, p.version, p.core, p.enabled ORDER BY p.seq LIMIT 1`,
		map[string]any{"key": EntryKey(tag, id)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	pkg := packageFromRow(rows[0])
	return &pkg, nil
}

// Stats returns node and relationship counts.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	packages, err := s.count("MATCH (n:Package) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	entries, err := s.count("MATCH (n:Entry) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	provides, err := s.count("MATCH ()-[r:PROVIDES]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &Stats{PackageCount: packages, EntryCount: entries, ProvidesCount: provides}, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: execute: %w", err)
		}
		res.Close()
		return nil
	}
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects every row in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func packageFromRow(r []any) PackageNode {
	enabled, _ := r[4].(bool)
	return PackageNode{
		ID:      toString(r[0]),
		Title:   toString(r[1]),
		Version: toString(r[2]),
		Core:    toString(r[3]),
		Enabled: enabled,
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case uint64:
		return int(n)
	default:
		return 0
	}
}
