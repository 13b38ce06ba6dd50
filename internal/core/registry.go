// Package core selects the active core content pack among the candidates
// declared by the data directory and installed extensions.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/failure"
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/fsenum"
	"github.com/dusk-indust/layercfg/internal/tree"
)

// DefaultID is the id of the core every installation must provide.
const DefaultID = "default"

// CoresFile is the per-directory core declaration file.
const CoresFile = "cores.yml"

// Descriptor is one candidate core.
type Descriptor struct {
	ID   string
	Path string
	// Source is the declaring node; its attributes are republished in the
	// registry listing. May be nil for hand-built descriptors.
	Source *tree.Node
}

// DescriptorFromNode reads a [core] node.
func DescriptorFromNode(n *tree.Node) Descriptor {
	return Descriptor{ID: n.Get("id"), Path: n.Get("path"), Source: n}
}

func (d Descriptor) node() *tree.Node {
	if d.Source != nil {
		return d.Source.Clone()
	}
	return tree.NewWithAttrs("core", "id", d.ID, "path", d.Path)
}

// Rejection records a dropped candidate.
type Rejection struct {
	ID     string
	Path   string
	Reason string
}

// Result is the outcome of ResolveActiveCore.
type Result struct {
	// Tree is the compiled active core with a [core] listing of every valid
	// candidate appended.
	Tree     *tree.Node
	ActiveID string
	Valid    []Descriptor
	Rejected []Rejection
	// FellBack is set when the preferred id was unusable and "default" was
	// selected instead.
	FellBack bool
}

// Options configures a Registry.
type Options struct {
	Compiler   compiler.Compiler
	Enumerator fsenum.Enumerator
	Locator    Locator
	// DataDir holds the mainline cores file.
	DataDir string
	// AddonsDir is scanned for per-extension cores files.
	AddonsDir string
	// Schema, when set, validates the compiled active core.
	Schema *compiler.Schema
	Poster diag.Poster
	Logger *slog.Logger
}

// Registry loads and validates core candidates.
type Registry struct {
	opts   Options
	logger *slog.Logger
}

// NewRegistry returns a Registry. Nil enumerator and locator default to the
// real filesystem rooted at the configured directories.
func NewRegistry(opts Options) *Registry {
	if opts.Enumerator == nil {
		opts.Enumerator = fsenum.OS{}
	}
	if opts.Locator == nil {
		opts.Locator = DirLocator{DataDir: opts.DataDir}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{opts: opts, logger: logger}
}

// LoadCandidates compiles the mainline cores file and every extension's
// cores file, returning their [core] entries in declaration order. A broken
// extension cores file is diagnosed and skipped; a broken mainline file is
// an error.
func (r *Registry) LoadCandidates(ctx context.Context, flags flagset.Set) ([]Descriptor, error) {
	mainline := filepath.Join(r.opts.DataDir, CoresFile)
	cores, err := r.opts.Compiler.Compile(ctx, mainline, flags, nil)
	if err != nil {
		return nil, failure.FromCompile("load cores", err)
	}

	_, dirs, err := r.opts.Enumerator.ListEntries(r.opts.AddonsDir, fsenum.FullPath)
	if err != nil {
		return nil, failure.New(failure.IO, "list extensions", err)
	}
	for _, dir := range dirs {
		file := filepath.Join(dir, CoresFile)
		if !fsenum.FileExists(file) {
			continue
		}
		extra, err := r.opts.Compiler.Compile(ctx, file, flags, nil)
		if err != nil {
			r.logger.Error("error reading extension cores file", "path", file, "error", err)
			r.post(diag.Diagnostic{
				Severity: diag.SeverityError,
				Title:    "Error validating data core.",
				Message:  fmt.Sprintf("Could not read %s.\nSkipping its cores.", file),
				Details:  err.Error(),
			})
			continue
		}
		cores.Append(extra)
	}

	var out []Descriptor
	for _, n := range cores.ChildRange("core") {
		out = append(out, DescriptorFromNode(n))
	}
	return out, nil
}

// ResolveActiveCore validates candidates, selects the preferred core or
// falls back to "default", compiles it, and appends the registry listing.
// Invalid candidates are diagnosed and dropped; only the absence of any
// usable root (no preferred and no default) is fatal.
func (r *Registry) ResolveActiveCore(ctx context.Context, candidates []Descriptor, preferredID string, flags flagset.Set) (*Result, error) {
	res := &Result{ActiveID: preferredID}
	seen := make(map[string]bool, len(candidates))
	currentValid := false
	root := ""

	for _, c := range candidates {
		if c.ID == "" {
			r.reject(res, c, "Found a core without id attribute.")
			continue
		}
		if seen[c.ID] {
			r.reject(res, c, "The ID is already in use.")
			continue
		}
		located, ok := r.opts.Locator.Locate(c.Path)
		if !ok {
			r.reject(res, c, "File not found.")
			continue
		}
		seen[c.ID] = true

		if c.ID == DefaultID && !currentValid {
			root = located
		}
		if c.ID == preferredID {
			currentValid = true
			root = located
		}
		res.Valid = append(res.Valid, c)
	}

	if !currentValid {
		r.logger.Warn("preferred core unusable, falling back", "core", preferredID)
		r.post(diag.Diagnostic{
			Severity: diag.SeverityError,
			Title:    "Error loading core data.",
			Message: fmt.Sprintf("Core ID: %s\nError loading the core with named id.\nFalling back to the default core.",
				preferredID),
		})
		res.ActiveID = DefaultID
		res.FellBack = true
	}

	if root == "" {
		r.post(diag.Diagnostic{
			Severity: diag.SeverityFatal,
			Title:    "Error loading core data.",
			Message:  "Can't locate the default core.\nThe game will now exit.",
		})
		return res, failure.New(failure.Fatal, "resolve core", failure.ErrNoDefaultCore)
	}

	t, err := r.opts.Compiler.Compile(ctx, root, flags, r.opts.Schema)
	if err != nil {
		return res, failure.FromCompile("compile core "+res.ActiveID, err)
	}
	for _, c := range res.Valid {
		t.AppendChild(c.node())
	}
	res.Tree = t

	r.logger.Info("core resolved", "core", res.ActiveID, "path", root, "valid", len(res.Valid), "rejected", len(res.Rejected))
	return res, nil
}

func (r *Registry) reject(res *Result, c Descriptor, reason string) {
	res.Rejected = append(res.Rejected, Rejection{ID: c.ID, Path: c.Path, Reason: reason})
	r.logger.Warn("skipping core", "id", c.ID, "path", c.Path, "reason", reason)

	msg := ""
	if c.ID != "" {
		msg = "Core ID: " + c.ID + "\n"
	}
	if reason == "File not found." {
		msg += "Core Path: " + c.Path + "\n"
	}
	msg += reason + "\nSkipping the core."
	r.post(diag.Diagnostic{
		Severity: diag.SeverityError,
		Title:    "Error validating data core.",
		Message:  msg,
	})
}

func (r *Registry) post(d diag.Diagnostic) {
	if r.opts.Poster != nil {
		r.opts.Poster.Post(d)
	}
}
