package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/layercfg/internal/export"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
)

// runDiagram resolves with the configured flags and prints the provenance
// graph of the result.
func runDiagram(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseConfig("diagram", args, stderr, nil)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	out := a.await(a.worker.Submit(ctx, orchestrator.Request{Flags: cfg.Flags(), Selection: cfg.Selection()}), nil)
	if out.Err != nil {
		return out.Err
	}

	mermaid, err := export.GenerateMermaid(ctx, out.Resolution.ActiveCore, a.store)
	if err != nil {
		return fmt.Errorf("diagram failed: %w", err)
	}
	fmt.Fprint(stdout, mermaid)
	return nil
}
