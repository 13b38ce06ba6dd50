// Package status persists the last resolution snapshot between runs and
// renders snapshots and diagnostics for the terminal.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
)

// FileName is the snapshot file kept under the user data directory.
const FileName = "last-resolution.json"

// Path returns the snapshot location for userDataDir.
func Path(userDataDir string) string {
	return filepath.Join(userDataDir, "layercfg", FileName)
}

// Save writes snap to path, creating parent directories.
func Save(path string, snap orchestrator.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("status: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot written by Save. A missing file yields an unresolved
// idle snapshot and no error.
func Load(path string) (orchestrator.Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return orchestrator.Snapshot{State: orchestrator.StateIdle.String(), AllEnabled: true}, nil
	}
	if err != nil {
		return orchestrator.Snapshot{}, fmt.Errorf("status: %w", err)
	}
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return orchestrator.Snapshot{}, fmt.Errorf("status: parse %s: %w", path, err)
	}
	return snap, nil
}

// Printer renders to one writer with styles suited to it.
type Printer struct {
	w        io.Writer
	heading  lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
	bad      lipgloss.Style
	dim      lipgloss.Style
	severity map[diag.Severity]lipgloss.Style
}

// NewPrinter detects the color profile of w. Non-terminal writers get plain
// text.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:       w,
		heading: r.NewStyle().Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:     r.NewStyle().Faint(true),
	}
	p.severity = map[diag.Severity]lipgloss.Style{
		diag.SeverityInfo:    p.dim,
		diag.SeverityWarning: p.warn,
		diag.SeverityError:   p.bad,
		diag.SeverityFatal:   p.bad,
	}
	return p
}

// Snapshot prints a status table.
func (p *Printer) Snapshot(snap orchestrator.Snapshot) {
	state := snap.State
	switch {
	case snap.LastError != "":
		state = p.bad.Render(state)
	case snap.Resolved:
		state = p.ok.Render(state)
	}
	fmt.Fprintf(p.w, "%s %s\n", p.heading.Render("State:"), state)

	if !snap.Resolved {
		fmt.Fprintln(p.w, "No configuration resolved yet.")
		fmt.Fprintln(p.w, "Run 'layercfg resolve' to build one.")
		p.lastError(snap)
		return
	}

	core := snap.ActiveCore
	if snap.PreferredCore != "" && snap.PreferredCore != snap.ActiveCore {
		core += p.warn.Render(fmt.Sprintf(" (preferred %s)", snap.PreferredCore))
	}
	fmt.Fprintf(p.w, "%s %s\n", p.heading.Render("Core:"), core)
	fmt.Fprintf(p.w, "%s %s\n", p.heading.Render("Flags:"), orNone(strings.Join(snap.Flags, " ")))

	sel := "all"
	if !snap.AllEnabled {
		sel = orNone(strings.Join(snap.Selection, ", "))
	}
	fmt.Fprintf(p.w, "%s %s\n", p.heading.Render("Enabled:"), sel)
	if snap.ExtensionsDisabled {
		fmt.Fprintln(p.w, p.warn.Render("Extensions were disabled after a load failure."))
	}

	if len(snap.Extensions) > 0 {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, p.heading.Render("Extensions:"))
		for _, ext := range snap.Extensions {
			marker := "  "
			if ext.Enabled {
				marker = p.ok.Render("✓ ")
			}
			version := ext.Version
			if version == "" {
				version = "-"
			}
			fmt.Fprintf(p.w, "  %s%-24s %-10s %s\n", marker, ext.ID, version, p.dim.Render(fmt.Sprintf("%d entries", len(ext.Entries))))
		}
	}
	for _, id := range snap.Failed {
		fmt.Fprintf(p.w, "  %s\n", p.bad.Render("✗ "+id))
	}

	ix := snap.Index
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%s %d unit types, %d terrain types, %d multiplayer scenarios, %d preload scripts",
		p.heading.Render("Index:"), ix.UnitTypes, ix.TerrainTypes, ix.MultiplayerScenarios, ix.PreloadScripts)
	if ix.BrokenScripts > 0 {
		fmt.Fprint(p.w, p.bad.Render(fmt.Sprintf(" (%d broken)", ix.BrokenScripts)))
	}
	fmt.Fprintln(p.w)
	p.lastError(snap)
}

func (p *Printer) lastError(snap orchestrator.Snapshot) {
	if snap.LastError != "" {
		fmt.Fprintf(p.w, "%s %s\n", p.bad.Render("Last error:"), snap.LastError)
	}
}

// ShowError implements diag.Sink.
func (p *Printer) ShowError(d diag.Diagnostic) {
	style := p.severity[d.Severity]
	fmt.Fprintf(p.w, "%s %s\n", style.Render("["+d.Severity.String()+"]"), p.heading.Render(d.Title))
	if d.Message != "" {
		fmt.Fprintln(p.w, d.Message)
	}
	for _, item := range d.Items {
		fmt.Fprintf(p.w, "  %s\n", item)
	}
	if d.Details != "" {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, p.dim.Render(d.Details))
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
