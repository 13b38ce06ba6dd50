package orchestrator

import (
	"log/slog"

	"github.com/dusk-indust/layercfg/internal/compiler"
	"github.com/dusk-indust/layercfg/internal/core"
	"github.com/dusk-indust/layercfg/internal/diag"
	"github.com/dusk-indust/layercfg/internal/fsenum"
	"github.com/dusk-indust/layercfg/internal/provenance"
)

// Config holds the collaborators and runtime switches of a Resolver.
type Config struct {
	// Compiler builds trees. When it is a *compiler.Cache, ReloadChanged
	// also rechecks the data-tree checksum.
	Compiler   compiler.Compiler
	Enumerator fsenum.Enumerator
	// Locator resolves core paths; defaults to a DirLocator over DataDir
	// and UserDataDir.
	Locator     core.Locator
	DataDir     string
	UserDataDir string
	// AddonsDir is the user extensions directory.
	AddonsDir string

	// PreferredCore is the core id to activate. Empty means "default".
	PreferredCore string
	// NoAddons disables extension loading globally.
	NoAddons bool
	// Debug adds DEBUG_MODE to every flag set.
	Debug bool
	// MPTest adds MP_TEST to multiplayer flag presets.
	MPTest bool

	// CoreSchema validates the active core while compiling it.
	CoreSchema *compiler.Schema
	// ValidateAddon names one extension to compile with AddonSchema.
	ValidateAddon string
	AddonSchema   *compiler.Schema

	// Store receives package provenance after each pass when set.
	Store provenance.Store

	// Poster receives user-facing diagnostics and main-thread callbacks.
	Poster diag.Poster
	Logger *slog.Logger
}

// ValidationRequested reports whether any schema validation is enabled.
func (c Config) ValidationRequested() bool {
	return c.CoreSchema != nil || c.ValidateAddon != ""
}
