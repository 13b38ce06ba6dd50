package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/config"
	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/fsenum"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
	"github.com/dusk-indust/layercfg/internal/provenance"
	"github.com/dusk-indust/layercfg/internal/status"
)

// parseConfig loads layercfg.yml from the working directory, applies the
// environment, then parses args with the config flags plus whatever extra
// registers.
func parseConfig(name string, args []string, stderr io.Writer, extra func(*pflag.FlagSet)) (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("layercfg "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.AddFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	cfg.Normalize()
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}

// app is one wired resolver with its diagnostics queue and store.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *diag.Queue
	printer  *status.Printer
	store    provenance.Store
	cache    *compiler.Cache
	resolver *orchestrator.Resolver
	worker   *orchestrator.Worker
}

func newApp(ctx context.Context, cfg *config.Config, stderr io.Writer) (*app, error) {
	logger := newLogger(cfg, stderr)

	store, err := provenance.Open(cfg.ProvenancePath)
	if err != nil {
		return nil, fmt.Errorf("open provenance store: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init provenance store: %w", err)
	}

	var coreSchema, addonSchema *compiler.Schema
	if cfg.ValidationRequested() {
		schema, err := compiler.LoadSchema(cfg.Schema())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("load schema: %w", err)
		}
		if cfg.ValidateCore {
			coreSchema = schema
		}
		if cfg.ValidateAddon != "" {
			addonSchema = schema
		}
	}

	cache := compiler.NewCache(compiler.NewYAMLCompiler(logger.With("component", "compiler")), compiler.CacheOptions{
		Roots:      []string{cfg.DataDir, filepath.Join(cfg.UserDataDir, "data")},
		Disabled:   cfg.NoCache,
		ForceValid: cfg.ForceValidCache,
		Logger:     logger.With("component", "cache"),
	})

	queue := diag.NewQueue()
	resolver := orchestrator.NewResolver(orchestrator.Config{
		Compiler:      cache,
		Enumerator:    fsenum.OS{},
		DataDir:       cfg.DataDir,
		UserDataDir:   cfg.UserDataDir,
		AddonsDir:     cfg.AddonsDir(),
		PreferredCore: cfg.Core,
		NoAddons:      cfg.NoAddons,
		Debug:         cfg.Debug,
		MPTest:        cfg.MPTest,
		CoreSchema:    coreSchema,
		ValidateAddon: cfg.ValidateAddon,
		AddonSchema:   addonSchema,
		Store:         store,
		Poster:        queue,
		Logger:        logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		queue:    queue,
		printer:  status.NewPrinter(stderr),
		store:    store,
		cache:    cache,
		resolver: resolver,
		worker:   orchestrator.NewWorker(resolver),
	}, nil
}

// await waits for out while showing progress and draining diagnostics on
// the calling goroutine.
func (a *app) await(out <-chan orchestrator.Outcome, progress io.Writer) orchestrator.Outcome {
	events := a.resolver.Progress()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if progress != nil {
				fmt.Fprintln(progress, orchestrator.FormatProgress(ev))
			}
		case <-a.queue.Notify():
			a.queue.Drain(a.printer)
		case o := <-out:
			for events != nil {
				select {
				case ev, ok := <-events:
					if !ok {
						events = nil
					} else if progress != nil {
						fmt.Fprintln(progress, orchestrator.FormatProgress(ev))
					}
				default:
					events = nil
				}
			}
			a.queue.Drain(a.printer)
			return o
		}
	}
}

// saveStatus records the resolver snapshot for later status and export runs.
func (a *app) saveStatus() {
	path := status.Path(a.cfg.UserDataDir)
	if err := status.Save(path, a.resolver.Snapshot()); err != nil {
		a.logger.Warn("status not saved", "path", path, "error", err)
	}
}

func (a *app) Close() {
	a.worker.Close()
	a.resolver.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close provenance store", "error", err)
	}
}
