package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/layercfg/internal/export"
	"github.com/dusk-indust/layercfg/internal/provenance"
	"github.com/dusk-indust/layercfg/internal/status"
)

// runExport prints the last saved resolution. Entry hashes are included
// when a persistent provenance store is configured.
func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseConfig("export", args, stderr, nil)
	if err != nil {
		return err
	}

	snap, err := status.Load(status.Path(cfg.UserDataDir))
	if err != nil {
		return err
	}

	var store provenance.Store
	if cfg.ProvenancePath != "" {
		store, err = provenance.Open(cfg.ProvenancePath)
		if err != nil {
			return fmt.Errorf("open provenance store: %w", err)
		}
		defer store.Close()
		if err := store.InitSchema(ctx); err != nil {
			return fmt.Errorf("init provenance store: %w", err)
		}
	}

	data, err := export.ExportResolution(ctx, snap, store)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return export.WriteJSON(stdout, data)
}
