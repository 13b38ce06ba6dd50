// Package extension discovers installed extension packages, filters them by
// core compatibility, compiles their content, stamps provenance on the
// entries they contribute, and moves those entries into the base tree.
package extension

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/failure"
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/fsenum"
	"github.com/dusk-indust/layercfg/internal/tree"
	"github.com/dusk-indust/layercfg/internal/version"
)

// Files an extension directory may carry.
const (
	MainFile    = "_main.yml"
	InfoFile    = "_info.yml"
	PublishFile = "_publish.yml"
)

// EntryTags are the top-level declarations an extension contributes to the
// shared base tree. They receive provenance attributes.
var EntryTags = []string{"era", "modification", "resource", "multiplayer", "scenario", "campaign"}

// Provenance attribute keys.
const (
	AttrSourceID      = "source_id"
	AttrSourceTitle   = "source_title"
	AttrSourceVersion = "source_version"
)

func isEntryTag(tag string) bool {
	for _, t := range EntryTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Package is one loaded extension.
type Package struct {
	ID       string
	Path     string
	Metadata Metadata
	// Content is the compiled tree minus the entry declarations that were
	// moved into the base tree. It is kept so the package can be enabled or
	// disabled later without recompiling.
	Content *tree.Node
	// Entries lists "tag:id" for every declaration moved into the base.
	Entries []string
}

// Options configures a Loader.
type Options struct {
	Compiler   compiler.Compiler
	Enumerator fsenum.Enumerator
	AddonsDir  string
	// ValidateTarget names one extension to compile with Schema. If it is
	// never loaded, LoadAll fails.
	ValidateTarget string
	Schema         *compiler.Schema
	Poster         diag.Poster
	Logger         *slog.Logger
}

// Result is the outcome of LoadAll.
type Result struct {
	Packages map[string]*Package
	// Order is the load order of Packages.
	Order   []string
	Report  Report
	Notices []Notice
}

// Loader loads extension packages.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// NewLoader returns a Loader.
func NewLoader(opts Options) *Loader {
	if opts.Enumerator == nil {
		opts.Enumerator = fsenum.OS{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{opts: opts, logger: logger}
}

// LoadAll loads every compatible extension under the extensions directory,
// moving their entry declarations into base. Per-package failures are
// collected into the returned report and shown once at the end; they never
// abort the pass. The only error is a validation target that was requested
// but never loaded.
func (l *Loader) LoadAll(ctx context.Context, base *tree.Node, activeCore string, flags flagset.Set) (*Result, error) {
	res := &Result{Packages: make(map[string]*Package)}
	dir := l.opts.AddonsDir

	files, _, err := l.opts.Enumerator.ListEntries(dir, fsenum.FullPath)
	if err != nil {
		return res, failure.New(failure.IO, "list extensions", err)
	}
	for _, file := range files {
		if filepath.Ext(file) != ".yml" {
			continue
		}
		l.logger.Error("error reading single-file extension", "path", file)
		rel := filepath.Base(file)
		res.Report.add(file, fmt.Sprintf(
			"The format '%s' (for single-file extensions) is not supported anymore, use '%s/%s' instead.",
			rel, strings.TrimSuffix(rel, ".yml"), MainFile))
	}

	_, ids, err := l.opts.Enumerator.ListEntries(dir, fsenum.LeafName)
	if err != nil {
		return res, failure.New(failure.IO, "list extensions", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pkg, notices := l.loadOne(ctx, base, id, activeCore, flags, &res.Report)
		res.Notices = append(res.Notices, notices...)
		if pkg == nil {
			continue
		}
		res.Packages[id] = pkg
		res.Order = append(res.Order, id)
	}

	for _, n := range res.Notices {
		l.logger.Warn("deprecated construct", "extension", n.Extension, "subject", n.Subject,
			"level", n.Level.String(), "since", n.Since, "hint", n.Message)
	}

	var loadErr error
	if target := l.opts.ValidateTarget; target != "" {
		if _, ok := res.Packages[target]; !ok {
			l.logger.Error("validation target not found, check whether the id has a typo", "extension", target)
			res.Report.Log = append(res.Report.Log,
				"Didn't find an extension for validation target "+target+" - check whether the id has a typo")
			loadErr = failure.New(failure.Inconsistency, "validate extension "+target, failure.ErrValidationTargetMissing)
		} else {
			l.logger.Warn("validation only covers content that is actually exercised", "extension", target)
		}
	}

	if !res.Report.Empty() && l.opts.Poster != nil {
		l.opts.Poster.Post(res.Report.Diagnostic())
	}
	return res, loadErr
}

// loadOne returns nil when the directory is not a loadable, compatible
// extension or failed to compile.
func (l *Loader) loadOne(ctx context.Context, base *tree.Node, id, activeCore string, flags flagset.Set, report *Report) (*Package, []Notice) {
	dir := filepath.Join(l.opts.AddonsDir, id)
	main := filepath.Join(dir, MainFile)
	if !fsenum.FileExists(main) {
		return nil, nil
	}
	logger := l.logger.With("extension", id)
	logger.Debug("loading extension")

	md, err := l.resolveMetadata(ctx, id, dir, flags)
	if err != nil {
		logger.Error("invalid publishing descriptor", "error", err)
		report.add(err.Error(), "The provided extension has an invalid publishing descriptor for extension "+id)
	}

	if md.Type != CoreType && md.Core != activeCore {
		logger.Debug("skipping extension for another core", "core", md.Core, "active", activeCore)
		return nil, nil
	}

	var schema *compiler.Schema
	if l.opts.ValidateTarget == id {
		schema = l.opts.Schema
	}
	content, err := l.opts.Compiler.Compile(ctx, main, flags, schema)
	if err != nil {
		logger.Error("error reading extension", "path", main, "error", err)
		msg := err.Error()
		if compiler.IsIOError(err) {
			msg = ""
		}
		report.add(main, msg)
		return nil, nil
	}

	canonical := version.Canonical(md.Version)
	for _, c := range content.Children() {
		if !isEntryTag(c.Tag) {
			continue
		}
		c.Set(AttrSourceID, id)
		c.Set(AttrSourceTitle, md.Title)
		c.Set(AttrSourceVersion, canonical)
	}

	notices := migrateAdvanceFrom(id, content)
	notices = append(notices, checkRemovedFlags(id, content)...)

	pkg := &Package{ID: id, Path: dir, Metadata: md}
	for _, tag := range EntryTags {
		for _, c := range content.ChildRange(tag) {
			pkg.Entries = append(pkg.Entries, tag+":"+c.Get("id"))
		}
		base.AppendChildrenByMove(content, tag)
	}
	pkg.Content = content

	logger.Info("extension loaded", "title", md.Title, "version", canonical, "entries", len(pkg.Entries))
	return pkg, notices
}
