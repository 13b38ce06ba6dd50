package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/failure"
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/provenance"
	"github.com/dusk-indust/layercfg/internal/tree"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// countingCompiler records every compile that reaches the real compiler.
type countingCompiler struct {
	inner compiler.Compiler
	mu    sync.Mutex
	calls map[string]int
	total int
}

func (c *countingCompiler) Compile(ctx context.Context, path string, flags flagset.Set, schema *compiler.Schema) (*tree.Node, error) {
	c.mu.Lock()
	c.calls[filepath.Base(filepath.Dir(path))+"/"+filepath.Base(path)]++
	c.total++
	c.mu.Unlock()
	return c.inner.Compile(ctx, path, flags, schema)
}

func (c *countingCompiler) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *countingCompiler) Calls(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

const coresYML = `core:
  - id: default
    path: core/_main.yml
  - id: alt
    path: alt/_main.yml
`

const defaultCoreYML = `id: mainline
multiplayer:
  id: mp_base
units:
  unit_type:
    id: Spearman
ifdef BROKEN:
  include: missing.yml
`

type fixture struct {
	root     string
	data     string
	addons   string
	queue    *diag.Queue
	compiler *countingCompiler
	cfg      Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:  root,
		data:  filepath.Join(root, "data"),
		queue: diag.NewQueue(),
		compiler: &countingCompiler{
			inner: compiler.NewYAMLCompiler(nil),
			calls: make(map[string]int),
		},
	}
	f.addons = filepath.Join(root, "user", "data", "add-ons")
	require.NoError(t, os.MkdirAll(f.addons, 0o755))

	writeFile(t, filepath.Join(f.data, "cores.yml"), coresYML)
	writeFile(t, filepath.Join(f.data, "core", "_main.yml"), defaultCoreYML)
	writeFile(t, filepath.Join(f.data, "alt", "_main.yml"), "id: alternative\n")

	f.addExtension(t, "heroes", "era:\n  id: heroes_era\ncampaign:\n  id: saga\nunits:\n  unit_type:\n    id: Hero\n")
	f.addExtension(t, "villains", "era:\n  id: dark_era\n")

	f.cfg = Config{
		Compiler:    f.compiler,
		DataDir:     f.data,
		UserDataDir: filepath.Join(root, "user"),
		AddonsDir:   f.addons,
		Poster:      f.queue,
	}
	return f
}

func (f *fixture) addExtension(t *testing.T, id, main string) {
	t.Helper()
	writeFile(t, filepath.Join(f.addons, id, "_main.yml"), main)
}

func (f *fixture) titles() []string {
	var c diag.Collector
	f.queue.Drain(&c)
	return c.Titles()
}

func drainStates(r *Resolver) []State {
	var out []State
	for {
		select {
		case ev := <-r.Progress():
			out = append(out, ev.State)
		default:
			return out
		}
	}
}

func req(flags flagset.Set, mode flagset.Mode, sel flagset.Selection) Request {
	return Request{Flags: flags, Mode: mode, Selection: sel}
}

func TestResolve_FullThenNoOp(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)
	ctx := context.Background()

	first, err := r.Resolve(ctx, req(flagset.Of("A"), flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, flagset.FullReload, first.Decision)
	assert.Equal(t, "default", first.ActiveCore)
	assert.Equal(t, []string{"heroes", "villains"}, first.Order)
	assert.Equal(t, []State{StateDeciding, StateRebuildingCore, StateLoadingExtensions, StateIndexing, StateReady}, drainStates(r))

	calls := f.compiler.Total()
	second, err := r.Resolve(ctx, req(flagset.Of("A"), flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, calls, f.compiler.Total(), "a no-op pass must not compile anything")
	assert.Equal(t, []State{StateDeciding, StateNoOp, StateReady}, drainStates(r))
	assert.Empty(t, f.titles())
}

func TestResolve_ComposedView(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)

	res, err := r.Resolve(context.Background(), req(nil, flagset.Strict, flagset.All))
	require.NoError(t, err)

	base := res.View.Base()
	era := base.FindChild("era", "id", "heroes_era")
	require.NotNil(t, era, "entry declarations are moved into the base tree")
	assert.Equal(t, "heroes", era.Get("source_id"))
	// Registry listing of every valid core.
	assert.Equal(t, 2, base.ChildCount("core"))
	assert.Equal(t, "mainline", res.View.Get("id"))

	require.Contains(t, res.Index.UnitTypes.Types, "Hero")
	assert.Contains(t, res.Index.UnitTypes.Types, "Spearman")
	assert.Contains(t, res.Index.MultiplayerHashes, "mp_base")
}

func TestResolve_SelectionChangeIsPartial(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)
	ctx := context.Background()

	_, err := r.Resolve(ctx, req(nil, flagset.Strict, flagset.All))
	require.NoError(t, err)
	calls := f.compiler.Total()

	res, err := r.Resolve(ctx, req(nil, flagset.Strict, flagset.Select("villains", "ghost")))
	require.NoError(t, err)
	assert.Equal(t, flagset.PartialReload, res.Decision)
	assert.Equal(t, calls, f.compiler.Total(), "a partial reload reuses compiled trees")
	assert.Equal(t, []string{"villains"}, res.View.Enabled())
	assert.NotContains(t, res.Index.UnitTypes.Types, "Hero", "disabled layer is not indexed")

	res, err = r.Resolve(ctx, req(nil, flagset.Strict, flagset.Select()))
	require.NoError(t, err)
	assert.Empty(t, res.View.Enabled())
	require.Len(t, res.View.Layers(), 1)
}

func TestResolve_FlagModes(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)
	ctx := context.Background()

	_, err := r.Resolve(ctx, req(flagset.Of("A"), flagset.Strict, flagset.All))
	require.NoError(t, err)
	drainStates(r)
	calls := f.compiler.Total()

	// Only added flags: the loaded tree is kept.
	_, err = r.Resolve(ctx, req(flagset.Of("A", "B"), flagset.AllowSupersetReuse, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, calls, f.compiler.Total())
	assert.Contains(t, drainStates(r), StateNoOp)

	// Same addition under Strict rebuilds.
	res, err := r.Resolve(ctx, req(flagset.Of("A", "B"), flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, flagset.FullReload, res.Decision)
	assert.Greater(t, f.compiler.Total(), calls)

	// A changed value always rebuilds.
	res, err = r.Resolve(ctx, req(flagset.Set{"A": "1", "B": ""}, flagset.AllowSupersetReuse, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, flagset.FullReload, res.Decision)

	// ForceReload ignores equality.
	res, err = r.Resolve(ctx, req(flagset.Set{"A": "1", "B": ""}, flagset.ForceReload, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, flagset.FullReload, res.Decision)
}

func TestResolve_DebugModeFlag(t *testing.T) {
	f := newFixture(t)
	f.cfg.Debug = true
	r := NewResolver(f.cfg)

	res, err := r.Resolve(context.Background(), req(flagset.Of("A"), flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.True(t, res.Flags.Has("DEBUG_MODE"))
}

func TestResolve_ExtensionCompileError(t *testing.T) {
	f := newFixture(t)
	f.addExtension(t, "broken", "era: [unclosed\n")
	r := NewResolver(f.cfg)

	res, err := r.Resolve(context.Background(), req(nil, flagset.Strict, flagset.All))
	require.NoError(t, err)

	assert.NotContains(t, res.Packages, "broken")
	assert.Len(t, res.Report.Failed, 1)
	assert.Equal(t, "mainline", res.View.Base().Get("id"), "base tree intact")
	assert.False(t, res.ExtensionsDisabled)
	assert.Equal(t, []string{"The following extension had errors and could not be loaded:"}, f.titles())
	assert.Contains(t, drainStates(r), StateReady)
}

func TestResolve_DefaultCoreFailsIsFatal(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)

	_, err := r.Resolve(context.Background(), req(flagset.Of("BROKEN"), flagset.Strict, flagset.All))
	require.Error(t, err)
	assert.True(t, failure.IsFatal(err))
	assert.ErrorIs(t, err, failure.ErrFallbacksExhausted)

	// One attempt with extensions, one without; the default core has no
	// further fallback.
	assert.Equal(t, 2, f.compiler.Calls("core/_main.yml"))
	states := drainStates(r)
	recovering := 0
	for _, s := range states {
		if s == StateRecovering {
			recovering++
		}
	}
	assert.Equal(t, 2, recovering)
	assert.Equal(t, StateFailed, states[len(states)-1])

	assert.Equal(t, []string{
		"Error loading custom configuration files. Retrying without loading extensions.",
		"Error loading default core configuration files. Resolution cannot continue.",
	}, f.titles())
	assert.NotEmpty(t, r.Snapshot().LastError)
}

func TestResolve_BrokenPreferredCoreFallsBack(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.data, "alt", "_main.yml"), "id: [unclosed\n")
	f.cfg.PreferredCore = "alt"
	r := NewResolver(f.cfg)

	res, err := r.Resolve(context.Background(), req(nil, flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, "default", res.ActiveCore)
	assert.False(t, res.ExtensionsDisabled, "the default core is retried with extensions")
	assert.Equal(t, []string{"heroes", "villains"}, res.Order)
	assert.Contains(t, res.Packages, "heroes")
	assert.Contains(t, res.Packages, "villains")
	assert.Equal(t, 2, f.compiler.Calls("alt/_main.yml"))
	assert.False(t, r.Snapshot().ExtensionsDisabled)

	assert.Equal(t, []string{
		"Error loading custom configuration files. Retrying without loading extensions.",
		"Error loading custom configuration files. Falling back to the default core files.",
	}, f.titles())
	assert.Equal(t, "default", r.Snapshot().PreferredCore)
}

func TestResolve_UnknownPreferredCoreFallsBackOnce(t *testing.T) {
	f := newFixture(t)
	f.cfg.PreferredCore = "ghost"
	r := NewResolver(f.cfg)
	ctx := context.Background()

	res, err := r.Resolve(ctx, req(nil, flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, "default", res.ActiveCore)

	_, err = r.Resolve(ctx, req(nil, flagset.ForceReload, flagset.All))
	require.NoError(t, err)
	assert.Equal(t, []string{"Error loading core data."}, f.titles())
}

func TestResolve_NoAddons(t *testing.T) {
	f := newFixture(t)
	f.cfg.NoAddons = true
	r := NewResolver(f.cfg)

	res, err := r.Resolve(context.Background(), req(nil, flagset.Strict, flagset.All))
	require.NoError(t, err)
	assert.True(t, res.ExtensionsDisabled)
	assert.Empty(t, res.Packages)
	assert.NotContains(t, drainStates(r), StateLoadingExtensions)
}

func TestResolve_ValidationTargetMissing(t *testing.T) {
	f := newFixture(t)
	f.cfg.ValidateAddon = "absent"
	f.cfg.AddonSchema = &compiler.Schema{}
	r := NewResolver(f.cfg)

	_, err := r.Resolve(context.Background(), req(nil, flagset.Strict, flagset.All))
	require.Error(t, err)
	assert.Equal(t, failure.Inconsistency, failure.KindOf(err))
	assert.ErrorIs(t, err, failure.ErrValidationTargetMissing)
	assert.NotContains(t, drainStates(r), StateRecovering)
}

func TestResolve_RecordsProvenance(t *testing.T) {
	f := newFixture(t)
	store := provenance.NewMemStore()
	f.cfg.Store = store
	r := NewResolver(f.cfg)
	ctx := context.Background()

	_, err := r.Resolve(ctx, req(nil, flagset.Strict, flagset.Select("heroes")))
	require.NoError(t, err)

	p, err := store.ProviderOf(ctx, "campaign", "saga")
	require.NoError(t, err)
	assert.Equal(t, "heroes", p.ID)
	assert.True(t, p.Enabled)

	entries, err := store.EntriesOf(ctx, "heroes")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Len(t, entries[0].Hash, 64)

	pkgs, err := store.Packages(ctx)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.False(t, pkgs[1].Enabled)
}

func TestResolveForGame_RestoresOnFailure(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)
	ctx := context.Background()

	before, err := r.ResolveTitleScreen(ctx, Launch{})
	require.NoError(t, err)
	assert.True(t, before.Flags.Has("TITLE_SCREEN"))

	_, err = r.ResolveForGame(ctx, Classification{Type: CampaignScenario, Difficulty: "HARD", ExtraDefines: []string{"BROKEN"}})
	require.Error(t, err)

	snap := r.Snapshot()
	assert.Equal(t, []string{"TITLE_SCREEN"}, snap.Flags)
	assert.Equal(t, before.RunID, snap.RunID)
}

func TestResolveForGame_FlagsAndFlush(t *testing.T) {
	f := newFixture(t)
	f.cfg.MPTest = true
	r := NewResolver(f.cfg)
	flushed := 0
	r.OnFlush(SignalImages, func() { flushed++ })

	res, err := r.ResolveForGame(context.Background(), Classification{
		Type:       CampaignMultiplayer,
		Difficulty: "EASY",
		EraDefine:  "ERA_HEROES",
		ModDefines: []string{"MOD_X", ""},
		Extensions: flagset.Select("heroes"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"EASY", "ERA_HEROES", "MOD_X", "MP_TEST", "MULTIPLAYER"}, res.Flags.Names())
	assert.Equal(t, []string{"heroes"}, res.View.Enabled())

	// Flushes run on the draining goroutine.
	assert.Zero(t, flushed)
	f.titles()
	assert.Equal(t, 1, flushed)
}

func TestResolveForCreate_DefaultDifficulty(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)
	ctx := context.Background()

	_, err := r.ResolveTitleScreen(ctx, Launch{})
	require.NoError(t, err)

	res, err := r.ResolveForCreate(ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"MULTIPLAYER", DefaultDifficulty}, res.Flags.Names())
	calls := f.compiler.Total()

	// The default difficulty is already loaded, so nothing is rebuilt.
	_, err = r.ResolveForCreate(ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, calls, f.compiler.Total())
}

func TestReloadChanged(t *testing.T) {
	f := newFixture(t)
	cache := compiler.NewCache(f.compiler, compiler.CacheOptions{Roots: []string{f.data, f.addons}})
	f.cfg.Compiler = cache
	r := NewResolver(f.cfg)
	ctx := context.Background()
	var flushed []Signal
	r.OnFlush(SignalImages, func() { flushed = append(flushed, SignalImages) })
	r.OnFlush(SignalSounds, func() { flushed = append(flushed, SignalSounds) })

	_, err := r.Resolve(ctx, req(nil, flagset.Strict, flagset.Select("heroes")))
	require.NoError(t, err)

	f.addExtension(t, "newcomer", "era:\n  id: new_era\n")
	res, err := r.ReloadChanged(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, flagset.FullReload, res.Decision)
	assert.Contains(t, res.Packages, "newcomer")
	assert.Equal(t, []string{"heroes"}, res.View.Enabled(), "selection survives a reload")

	f.titles()
	assert.Equal(t, []Signal{SignalImages, SignalSounds}, flushed)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.cfg)

	snap := r.Snapshot()
	assert.False(t, snap.Resolved)
	assert.Equal(t, "idle", snap.State)

	_, err := r.Resolve(context.Background(), req(flagset.Of("X"), flagset.Strict, flagset.Select("villains")))
	require.NoError(t, err)

	snap = r.Snapshot()
	assert.True(t, snap.Resolved)
	assert.Equal(t, "ready", snap.State)
	assert.Equal(t, "default", snap.ActiveCore)
	assert.Equal(t, []string{"default", "alt"}, snap.Cores)
	assert.Equal(t, []string{"X"}, snap.Flags)
	assert.False(t, snap.AllEnabled)
	assert.Equal(t, []string{"villains"}, snap.Selection)
	require.Len(t, snap.Extensions, 2)
	assert.False(t, snap.Extensions[0].Enabled)
	assert.True(t, snap.Extensions[1].Enabled)
	assert.Equal(t, []string{"era:dark_era"}, snap.Extensions[1].Entries)
	assert.Equal(t, 1, snap.Index.MultiplayerScenarios)
}
