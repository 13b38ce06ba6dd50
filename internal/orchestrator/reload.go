package orchestrator

import (
	"context"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/flagset"
)

// Signal names a consumer cache that must be flushed after a resolution.
type Signal string

const (
	SignalImages Signal = "images"
	SignalSounds Signal = "sounds"
)

// OnFlush registers fn to run when signal is raised. Listeners run on the
// interactive goroutine through the configured Poster, or inline when there
// is none.
func (r *Resolver) OnFlush(signal Signal, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushers[signal] = append(r.flushers[signal], fn)
}

func (r *Resolver) flush(signals ...Signal) {
	for _, s := range signals {
		r.logger.Debug("flush", "signal", string(s))
		for _, fn := range r.flushers[s] {
			if r.cfg.Poster != nil {
				r.cfg.Poster.Call(fn)
			} else {
				fn()
			}
		}
	}
}

// ResolveTitleScreen is the start-up resolution.
func (r *Resolver) ResolveTitleScreen(ctx context.Context, l Launch) (*Resolution, error) {
	return r.Resolve(ctx, Request{Flags: r.TitleScreenFlags(l), Mode: flagset.Strict, Selection: flagset.All})
}

// ResolveForEditor resolves with the editor flags.
func (r *Resolver) ResolveForEditor(ctx context.Context) (*Resolution, error) {
	return r.Resolve(ctx, Request{Flags: r.EditorFlags(), Mode: flagset.Strict, Selection: flagset.All})
}

// ResolveForGame resolves the configuration a game of classification c
// needs. On failure the previous configuration is restored before the
// original error is returned.
func (r *Resolver) ResolveForGame(ctx context.Context, c Classification) (*Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.resolveLocked(ctx, Request{Flags: r.GameFlags(c), Mode: flagset.Strict, Selection: c.Extensions})
	if err != nil {
		r.restoreLocked(ctx)
		return nil, err
	}
	r.flush(SignalImages)
	return res, nil
}

// ResolveForCreate resolves the configuration of the game creation
// screens, reusing the loaded tree when only flags were added.
func (r *Resolver) ResolveForCreate(ctx context.Context, isMP, isTest bool) (*Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flags := r.createFlagsLocked(isMP, isTest)
	res, err := r.resolveLocked(ctx, Request{Flags: flags, Mode: flagset.AllowSupersetReuse, Selection: flagset.All})
	if err != nil {
		r.restoreLocked(ctx)
		return nil, err
	}
	return res, nil
}

func (r *Resolver) restoreLocked(ctx context.Context) {
	if r.st == nil {
		return
	}
	prev := r.prevFlags.Clone()
	r.logger.Warn("restoring previous configuration", "flags", prev.Key())
	if _, err := r.resolveLocked(ctx, Request{Flags: prev, Mode: flagset.Strict, Selection: flagset.All}); err != nil {
		r.logger.Error("previous configuration could not be restored", "error", err)
	}
}

// ReloadChanged rebuilds everything after content on disk changed: the
// compiler's checksum is rechecked, the previous flags are forgotten, and
// image and sound caches are flushed once the new tree is ready.
func (r *Resolver) ReloadChanged(ctx context.Context, flags flagset.Set) (*Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cache, ok := r.cfg.Compiler.(*compiler.Cache); ok {
		changed, err := cache.Recheck()
		if err != nil {
			r.logger.Warn("data tree checksum failed", "error", err)
		}
		r.logger.Info("data tree rechecked", "changed", changed)
	}
	sel := r.prevSel.Clone()
	r.prevFlags = nil

	res, err := r.resolveLocked(ctx, Request{Flags: flags, Mode: flagset.ForceReload, Selection: sel})
	if err != nil {
		return nil, err
	}
	r.flush(SignalImages, SignalSounds)
	return res, nil
}
