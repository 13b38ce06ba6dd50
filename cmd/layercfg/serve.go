package main

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/layercfg/internal/mcptools"
)

// runServeMCP exposes the resolver as MCP tools. Diagnostics are drained to
// stderr; stdout belongs to the stdio transport.
func runServeMCP(ctx context.Context, args []string, stderr io.Writer) error {
	var addr string
	cfg, err := parseConfig("serve-mcp", args, stderr, func(fs *pflag.FlagSet) {
		fs.StringVar(&addr, "http", "", "serve streamable HTTP on this address instead of stdio")
	})
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.queue.Notify():
				a.queue.Drain(a.printer)
			}
		}
	}()

	server := mcptools.NewMCPServer(mcptools.NewConfigService(a.resolver, a.store, cfg.Flags()))
	if addr != "" {
		a.logger.Info("serving MCP", "addr", addr)
		return mcptools.RunHTTP(ctx, server, addr)
	}
	return mcptools.RunStdio(ctx, server)
}
