package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: layercfg <command> [flags]

commands:
  resolve     resolve the configuration and print its status
  status      print the status of the last resolution
  export      print the last resolution as JSON
  diagram     print the extension provenance graph as Mermaid
  serve-mcp   run as an MCP server on stdio (or --http ADDR)
  version     print version and exit

Settings come from layercfg.yml, then LAYERCFG_* variables, then flags.
Run 'layercfg <command> --help' for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "resolve":
		return runResolve(ctx, rest, stdout, stderr)
	case "status":
		return runStatus(rest, stdout, stderr)
	case "export":
		return runExport(ctx, rest, stdout, stderr)
	case "diagram":
		return runDiagram(ctx, rest, stdout, stderr)
	case "serve-mcp":
		return runServeMCP(ctx, rest, stderr)
	case "version", "--version":
		fmt.Fprintln(stdout, version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
