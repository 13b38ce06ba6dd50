package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/tree"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestYAMLCompiler_Structure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "main.yml"), `
id: core
extra_defines: [A, B]
era:
  - id: default
    name: Default
  - id: ageless
units:
  unit_type:
    id: Elvish Fighter
    cost: 14
`)
	root, err := NewYAMLCompiler(nil).Compile(context.Background(), path, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "core", root.Get("id"))
	assert.Equal(t, "A,B", root.Get("extra_defines"))
	eras := root.ChildRange("era")
	require.Len(t, eras, 2)
	assert.Equal(t, "ageless", eras[1].Get("id"))
	assert.Equal(t, "14", root.Child("units").Child("unit_type").Get("cost"))
}

func TestYAMLCompiler_Conditionals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "main.yml"), `
ifdef MULTIPLAYER:
  multiplayer:
    id: 2p_map
ifndef MULTIPLAYER:
  campaign:
    id: heir
`)
	c := NewYAMLCompiler(nil)

	mp, err := c.Compile(context.Background(), path, flagset.Of("MULTIPLAYER"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.ChildCount("multiplayer"))
	assert.Equal(t, 0, mp.ChildCount("campaign"))

	sp, err := c.Compile(context.Background(), path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, sp.ChildCount("multiplayer"))
	assert.Equal(t, 1, sp.ChildCount("campaign"))
}

func TestYAMLCompiler_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "units", "elves.yml"), `
units:
  unit_type:
    id: Elvish Archer
`)
	path := writeFile(t, filepath.Join(dir, "main.yml"), `
era:
  id: default
include: units/elves.yml
`)
	root, err := NewYAMLCompiler(nil).Compile(context.Background(), path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Elvish Archer", root.Child("units").Child("unit_type").Get("id"))
}

func TestYAMLCompiler_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "a.yml"), "include: a.yml\n")
	_, err := NewYAMLCompiler(nil).Compile(context.Background(), path, nil, nil)
	require.Error(t, err)
	assert.True(t, IsTreeError(err))
}

func TestYAMLCompiler_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewYAMLCompiler(nil).Compile(context.Background(), filepath.Join(dir, "missing.yml"), nil, nil)
	require.Error(t, err)
	assert.True(t, IsIOError(err))

	bad := writeFile(t, filepath.Join(dir, "bad.yml"), "era: [unclosed\n")
	_, err = NewYAMLCompiler(nil).Compile(context.Background(), bad, nil, nil)
	require.Error(t, err)
	assert.True(t, IsTreeError(err))

	mixed := writeFile(t, filepath.Join(dir, "mixed.yml"), "era:\n  - id: a\n  - plain\n")
	_, err = NewYAMLCompiler(nil).Compile(context.Background(), mixed, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixes scalars and mappings")
}

func TestSchema_Validate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, filepath.Join(dir, "schema.yml"), `
closed: true
tags:
  era:
    required: [id]
  campaign: {}
`)
	s, err := LoadSchema(schemaPath)
	require.NoError(t, err)

	root := tree.New("")
	root.AddChild("era").Set("name", "No id")
	root.AddChild("bogus")

	findings := s.Validate(root)
	require.Len(t, findings, 2)
	assert.Equal(t, "[era]: missing required key \"id\"", findings[0].String())
	assert.Equal(t, "[bogus]: unknown top-level tag", findings[1].String())
}

// countingCompiler counts calls and returns a small fixed tree.
type countingCompiler struct {
	calls atomic.Int32
}

func (c *countingCompiler) Compile(_ context.Context, path string, _ flagset.Set, _ *Schema) (*tree.Node, error) {
	c.calls.Add(1)
	root := tree.New("")
	root.AddChild("era").Set("id", path)
	return root, nil
}

func TestCache_MemoizesByPathAndFlags(t *testing.T) {
	inner := &countingCompiler{}
	c := NewCache(inner, CacheOptions{})
	ctx := context.Background()

	a, err := c.Compile(ctx, "x", flagset.Of("A"), nil)
	require.NoError(t, err)
	_, err = c.Compile(ctx, "x", flagset.Of("A"), nil)
	require.NoError(t, err)
	_, err = c.Compile(ctx, "x", flagset.Of("B"), nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, misses)

	// Callers own their copy.
	a.RemoveChildren("era", nil)
	again, err := c.Compile(ctx, "x", flagset.Of("A"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, again.ChildCount("era"))
}

func TestCache_ConcurrentCompilesShareWork(t *testing.T) {
	inner := &countingCompiler{}
	c := NewCache(inner, CacheOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Compile(context.Background(), "same", nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, inner.calls.Load(), int32(16))
	assert.Equal(t, 1, c.Len())
}

func TestCache_DisabledAndValidatedBypass(t *testing.T) {
	inner := &countingCompiler{}
	c := NewCache(inner, CacheOptions{Disabled: true})
	ctx := context.Background()

	_, _ = c.Compile(ctx, "x", nil, nil)
	_, _ = c.Compile(ctx, "x", nil, nil)
	assert.Equal(t, int32(2), inner.calls.Load())

	c.SetDisabled(false)
	_, _ = c.Compile(ctx, "y", nil, &Schema{})
	_, _ = c.Compile(ctx, "y", nil, &Schema{})
	assert.Equal(t, int32(4), inner.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_RecheckDropsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yml"), "id: a\n")

	inner := &countingCompiler{}
	c := NewCache(inner, CacheOptions{Roots: []string{dir}})

	changed, err := c.Recheck()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NotEmpty(t, c.Checksum())

	_, _ = c.Compile(context.Background(), "a", nil, nil)
	require.Equal(t, 1, c.Len())

	writeFile(t, filepath.Join(dir, "b.yml"), "id: b\n")
	changed, err = c.Recheck()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ForceValidKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yml"), "id: a\n")

	c := NewCache(&countingCompiler{}, CacheOptions{Roots: []string{dir}, ForceValid: true})
	_, err := c.Recheck()
	require.NoError(t, err)
	_, _ = c.Compile(context.Background(), "a", nil, nil)

	writeFile(t, filepath.Join(dir, "b.yml"), "id: b\n")
	changed, err := c.Recheck()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, c.Len())
}

func TestDataTreeChecksum_MissingRoot(t *testing.T) {
	sum, err := DataTreeChecksum(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Len(t, sum, 64)
}
