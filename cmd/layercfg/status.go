package main

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/layercfg/internal/export"
	"github.com/dusk-indust/layercfg/internal/status"
)

func runStatus(args []string, stdout, stderr io.Writer) error {
	var asJSON bool
	cfg, err := parseConfig("status", args, stderr, func(fs *pflag.FlagSet) {
		fs.BoolVar(&asJSON, "json", false, "print the status as JSON")
	})
	if err != nil {
		return err
	}

	snap, err := status.Load(status.Path(cfg.UserDataDir))
	if err != nil {
		return err
	}
	if asJSON {
		return export.WriteJSON(stdout, snap)
	}
	status.NewPrinter(stdout).Snapshot(snap)
	return nil
}
