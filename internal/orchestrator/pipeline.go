package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/core"
	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/extension"
	"github.com/dusk-indust/layercfg/internal/failure"
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/index"
	"github.com/dusk-indust/layercfg/internal/tree"
	"github.com/dusk-indust/layercfg/internal/view"
)

// Compile-time interface check.
var _ Orchestrator = (*Resolver)(nil)

// resolutionState is everything a pass produces. A full reload builds a new
// one; a partial reload shares the trees of the previous one and only
// recomposes the view.
type resolutionState struct {
	core               *core.Result
	base               *tree.Node
	packages           map[string]*extension.Package
	order              []string
	report             extension.Report
	view               *view.Layered
	index              *index.Index
	extensionsDisabled bool
}

func (st *resolutionState) shareTrees() *resolutionState {
	return &resolutionState{
		core:               st.core,
		base:               st.base,
		packages:           st.packages,
		order:              st.order,
		report:             st.report,
		extensionsDisabled: st.extensionsDisabled,
	}
}

func (st *resolutionState) layers() map[string]*tree.Node {
	out := make(map[string]*tree.Node, len(st.packages))
	for id, p := range st.packages {
		out[id] = p.Content
	}
	return out
}

// Resolver owns the resolution state. Passes are serialized; construct one
// per application and share it by reference.
type Resolver struct {
	cfg      Config
	logger   *slog.Logger
	progress *ProgressReporter
	registry *core.Registry
	loader   *extension.Loader

	mu            sync.Mutex
	preferredCore string
	noAddons      bool
	st            *resolutionState
	prevFlags     flagset.Set
	prevSel       flagset.Selection
	flushers      map[Signal][]func()

	statusMu        sync.RWMutex
	state           State
	statusPreferred string
	last            *Resolution
	lastErr         error
}

// NewResolver wires the core registry and extension loader from cfg.
func NewResolver(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Locator == nil {
		cfg.Locator = core.DirLocator{DataDir: cfg.DataDir, UserDataDir: cfg.UserDataDir}
	}
	preferred := cfg.PreferredCore
	if preferred == "" {
		preferred = core.DefaultID
	}
	return &Resolver{
		cfg:      cfg,
		logger:   logger,
		progress: NewProgressReporter(),
		registry: core.NewRegistry(core.Options{
			Compiler:   cfg.Compiler,
			Enumerator: cfg.Enumerator,
			Locator:    cfg.Locator,
			DataDir:    cfg.DataDir,
			AddonsDir:  cfg.AddonsDir,
			Schema:     cfg.CoreSchema,
			Poster:     cfg.Poster,
			Logger:     logger.With("component", "core"),
		}),
		loader: extension.NewLoader(extension.Options{
			Compiler:       cfg.Compiler,
			Enumerator:     cfg.Enumerator,
			AddonsDir:      cfg.AddonsDir,
			ValidateTarget: cfg.ValidateAddon,
			Schema:         cfg.AddonSchema,
			Poster:         cfg.Poster,
			Logger:         logger.With("component", "extension"),
		}),
		preferredCore:   preferred,
		noAddons:        cfg.NoAddons,
		flushers:        make(map[Signal][]func()),
		statusPreferred: preferred,
	}
}

// Resolve runs one resolution pass.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(ctx, req)
}

// Progress returns a channel that emits state transitions.
func (r *Resolver) Progress() <-chan ProgressEvent {
	return r.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (r *Resolver) Close() {
	r.progress.Close()
}

func (r *Resolver) resolveLocked(ctx context.Context, req Request) (*Resolution, error) {
	run := uuid.NewString()
	logger := r.logger.With("run", run)
	flags := req.Flags.With("DEBUG_MODE", "", r.cfg.Debug)
	sel := req.Selection.Clone()

	r.transition(run, StateDeciding, "")
	decision := flagset.FullReload
	if r.st != nil {
		decision = flagset.DecideReload(r.prevFlags, flags, req.Mode, r.prevSel, sel)
	}
	logger.Info("resolution requested",
		"flags", flags.Key(),
		"extensions", selectionLabel(sel),
		"mode", req.Mode.String(),
		"decision", decision.String(),
	)

	if decision == flagset.NoReload {
		logger.Info("configuration already loaded, nothing to do")
		r.transition(run, StateNoOp, "")
		r.transition(run, StateReady, "")
		return r.lastResolution(), nil
	}

	casc := newCascade()
	for {
		st, err := r.attempt(ctx, logger, run, decision, flags, sel)
		if err == nil {
			return r.commit(logger, run, decision, flags, sel, st), nil
		}
		if ctx.Err() != nil || failure.KindOf(err) == failure.Inconsistency {
			r.fail(logger, run, err)
			return nil, err
		}

		logger.Error("error loading configuration files", "error", err)
		r.transition(run, StateRecovering, err.Error())
		level := casc.next(!r.noAddons, r.preferredCore)
		r.post(fallbackDiagnostic(level, err))
		if level == fallbackNone {
			err = failure.New(failure.Fatal, "resolve", fmt.Errorf("%w: %w", failure.ErrFallbacksExhausted, err))
			r.fail(logger, run, err)
			return nil, err
		}

		switch level {
		case fallbackDisableExtensions:
			r.noAddons = true
		case fallbackDefaultCore:
			r.preferredCore = core.DefaultID
			r.noAddons = r.cfg.NoAddons
		}
		logger.Warn("retrying resolution", "fallback", level.String())
		decision = flagset.FullReload
	}
}

func (r *Resolver) attempt(ctx context.Context, logger *slog.Logger, run string, decision flagset.Decision, flags flagset.Set, sel flagset.Selection) (*resolutionState, error) {
	var st *resolutionState
	if decision == flagset.PartialReload && r.st != nil {
		st = r.st.shareTrees()
	} else {
		r.transition(run, StateRebuildingCore, r.preferredCore)
		var err error
		st, err = r.rebuildCore(ctx, logger, flags)
		if err != nil {
			return nil, err
		}

		if r.noAddons {
			st.extensionsDisabled = true
		} else {
			r.transition(run, StateLoadingExtensions, "")
			res, err := r.loader.LoadAll(ctx, st.base, st.core.ActiveID, flags)
			if res != nil {
				st.packages = res.Packages
				st.order = res.Order
				st.report = res.Report
			}
			if err != nil {
				return nil, err
			}
		}
	}

	st.view = view.New(st.base)
	st.view.SetEnabled(st.layers(), st.order, sel)

	r.transition(run, StateIndexing, "")
	st.index = index.Build(st.view, logger.With("component", "index"))
	r.recordProvenance(ctx, logger, st)
	return st, nil
}

func (r *Resolver) rebuildCore(ctx context.Context, logger *slog.Logger, flags flagset.Set) (*resolutionState, error) {
	if cache, ok := r.cfg.Compiler.(*compiler.Cache); ok {
		if _, err := cache.Recheck(); err != nil {
			logger.Warn("data tree checksum failed", "error", err)
		}
	}
	cands, err := r.registry.LoadCandidates(ctx, flags)
	if err != nil {
		return nil, err
	}
	res, err := r.registry.ResolveActiveCore(ctx, cands, r.preferredCore, flags)
	if err != nil {
		return nil, err
	}
	if res.FellBack {
		r.preferredCore = core.DefaultID
	}
	return &resolutionState{
		core:     res,
		base:     res.Tree,
		packages: make(map[string]*extension.Package),
	}, nil
}

func (r *Resolver) commit(logger *slog.Logger, run string, decision flagset.Decision, flags flagset.Set, sel flagset.Selection, st *resolutionState) *Resolution {
	r.st = st
	r.prevFlags = flags.Clone()
	r.prevSel = sel.Clone()

	res := &Resolution{
		RunID:              run,
		Decision:           decision,
		ActiveCore:         st.core.ActiveID,
		Cores:              append([]core.Descriptor(nil), st.core.Valid...),
		Flags:              flags.Clone(),
		Selection:          sel.Clone(),
		View:               st.view,
		Index:              st.index,
		Packages:           st.packages,
		Order:              append([]string(nil), st.order...),
		Report:             st.report,
		ExtensionsDisabled: st.extensionsDisabled,
		ResolvedAt:         time.Now(),
	}

	r.statusMu.Lock()
	r.last = res
	r.lastErr = nil
	r.statusMu.Unlock()

	logger.Info("resolution ready",
		"core", res.ActiveCore,
		"decision", decision.String(),
		"extensions", len(res.Packages),
		"enabled", len(st.view.Enabled()),
	)
	r.transition(run, StateReady, "")
	return res
}

func (r *Resolver) fail(logger *slog.Logger, run string, err error) {
	logger.Error("resolution failed", "error", err)
	r.statusMu.Lock()
	r.lastErr = err
	r.statusMu.Unlock()
	r.transition(run, StateFailed, err.Error())
}

func (r *Resolver) transition(run string, s State, msg string) {
	r.statusMu.Lock()
	r.state = s
	r.statusPreferred = r.preferredCore
	r.statusMu.Unlock()
	r.progress.Emit(ProgressEvent{Run: run, State: s, Message: msg})
}

func (r *Resolver) lastResolution() *Resolution {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.last
}

func (r *Resolver) post(d diag.Diagnostic) {
	if r.cfg.Poster != nil {
		r.cfg.Poster.Post(d)
	}
}

func selectionLabel(sel flagset.Selection) string {
	if sel.IsAll() {
		return "*"
	}
	return strings.Join(sel, ",")
}
