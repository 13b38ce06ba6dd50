package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/layercfg/internal/export"
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
	"github.com/dusk-indust/layercfg/internal/status"
)

type resolveFlags struct {
	Preset  string
	Mode    string
	Changed bool
	JSON    bool
	Quiet   bool
}

func runResolve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags resolveFlags
	cfg, err := parseConfig("resolve", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&flags.Preset, "preset", "", "flag preset: title, title-mp, editor, create, create-mp, create-test (default: --define flags only)")
		fs.StringVar(&flags.Mode, "mode", "strict", "reuse policy for --define resolutions: strict, allow-superset or force")
		fs.BoolVar(&flags.Changed, "changed", false, "recheck files and force a rebuild with the --define flags")
		fs.BoolVar(&flags.JSON, "json", false, "print the status as JSON")
		fs.BoolVarP(&flags.Quiet, "quiet", "q", false, "do not print progress")
	})
	if err != nil {
		return err
	}

	call, err := resolveCall(flags, cfg.Flags(), cfg.Selection())
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	var progress io.Writer = stderr
	if flags.Quiet {
		progress = nil
	}
	out := a.await(a.worker.SubmitFunc(ctx, func(ctx context.Context) (*orchestrator.Resolution, error) {
		return call(ctx, a.resolver)
	}), progress)
	a.saveStatus()

	snap := a.resolver.Snapshot()
	if flags.JSON {
		if err := export.WriteJSON(stdout, snap); err != nil {
			return err
		}
	} else {
		status.NewPrinter(stdout).Snapshot(snap)
	}
	return out.Err
}

type resolverCall func(context.Context, *orchestrator.Resolver) (*orchestrator.Resolution, error)

// resolveCall maps the command flags to one resolver operation.
func resolveCall(flags resolveFlags, defines flagset.Set, sel flagset.Selection) (resolverCall, error) {
	if flags.Changed {
		return func(ctx context.Context, r *orchestrator.Resolver) (*orchestrator.Resolution, error) {
			return r.ReloadChanged(ctx, defines)
		}, nil
	}

	switch flags.Preset {
	case "":
		mode, err := parseMode(flags.Mode)
		if err != nil {
			return nil, err
		}
		req := orchestrator.Request{Flags: defines, Mode: mode, Selection: sel}
		return func(ctx context.Context, r *orchestrator.Resolver) (*orchestrator.Resolution, error) {
			return r.Resolve(ctx, req)
		}, nil
	case "title", "title-mp":
		l := orchestrator.Launch{Multiplayer: flags.Preset == "title-mp"}
		return func(ctx context.Context, r *orchestrator.Resolver) (*orchestrator.Resolution, error) {
			return r.ResolveTitleScreen(ctx, l)
		}, nil
	case "editor":
		return func(ctx context.Context, r *orchestrator.Resolver) (*orchestrator.Resolution, error) {
			return r.ResolveForEditor(ctx)
		}, nil
	case "create", "create-mp", "create-test":
		isMP, isTest := flags.Preset == "create-mp", flags.Preset == "create-test"
		return func(ctx context.Context, r *orchestrator.Resolver) (*orchestrator.Resolution, error) {
			return r.ResolveForCreate(ctx, isMP, isTest)
		}, nil
	default:
		return nil, fmt.Errorf("unknown preset %q", flags.Preset)
	}
}

func parseMode(s string) (flagset.Mode, error) {
	for _, m := range []flagset.Mode{flagset.Strict, flagset.AllowSupersetReuse, flagset.ForceReload} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
