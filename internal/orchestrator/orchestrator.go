// Package orchestrator drives configuration resolution: it decides how much
// of the tree must be rebuilt, runs the core and extension stages, composes
// the layered view, derives indexes, and walks the recovery cascade when a
// stage fails.
package orchestrator

import (
	"context"
	"time"

	"github.com/dusk-indust/layercfg/internal/core"
	"github.com/dusk-indust/layercfg/internal/extension"
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/index"
	"github.com/dusk-indust/layercfg/internal/view"
)

// State is a step of the resolution state machine.
type State int

const (
	StateIdle State = iota
	StateDeciding
	StateNoOp
	StateRebuildingCore
	StateLoadingExtensions
	StateIndexing
	StateRecovering
	StateReady
	StateFailed
)

func (s State) String() string {
	names := [...]string{
		"idle",
		"deciding",
		"no-op",
		"rebuilding-core",
		"loading-extensions",
		"indexing",
		"recovering",
		"ready",
		"failed",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Request asks for a resolution with the given flags and selection.
type Request struct {
	Flags flagset.Set
	Mode  flagset.Mode
	// Selection is the enabled extension set; flagset.All enables every
	// loaded extension.
	Selection flagset.Selection
}

// Resolution is the product of a successful pass. It shares trees with the
// resolver and must be treated as read-only.
type Resolution struct {
	RunID      string
	Decision   flagset.Decision
	ActiveCore string
	Cores      []core.Descriptor
	Flags      flagset.Set
	Selection  flagset.Selection
	View       *view.Layered
	Index      *index.Index
	Packages   map[string]*extension.Package
	// Order is the load order of Packages.
	Order  []string
	Report extension.Report
	// ExtensionsDisabled is set once the recovery cascade turned extensions
	// off, or when configuration disables them.
	ExtensionsDisabled bool
	ResolvedAt         time.Time
}

// Outcome is the tagged result of a resolution request.
type Outcome struct {
	Resolution *Resolution
	Err        error
}

// Orchestrator resolves configuration trees.
type Orchestrator interface {
	Resolve(ctx context.Context, req Request) (*Resolution, error)

	// Progress returns a channel that emits state transitions.
	Progress() <-chan ProgressEvent
}
