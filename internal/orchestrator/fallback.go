package orchestrator

import (
	"github.com/dusk-indust/layercfg/internal/core"
	"github.com/dusk-indust/layercfg/internal/diag"
)

// fallbackLevel is a rung of the recovery cascade.
type fallbackLevel int

const (
	fallbackNone fallbackLevel = iota
	fallbackDisableExtensions
	fallbackDefaultCore
)

func (l fallbackLevel) String() string {
	switch l {
	case fallbackDisableExtensions:
		return "disable-extensions"
	case fallbackDefaultCore:
		return "default-core"
	default:
		return "none"
	}
}

// cascade tracks which rungs a single request has already used. Falling back
// to the default core turns extensions back on, which reopens the
// disable-extensions rung; the default-core rung itself is used at most
// once, so a request makes at most four attempts.
type cascade struct {
	tried map[fallbackLevel]bool
}

func newCascade() *cascade {
	return &cascade{tried: make(map[fallbackLevel]bool)}
}

// next picks the rung to apply after a failure, or fallbackNone when the
// failure is final.
func (c *cascade) next(extensionsEnabled bool, activeCore string) fallbackLevel {
	switch {
	case extensionsEnabled && !c.tried[fallbackDisableExtensions]:
		c.tried[fallbackDisableExtensions] = true
		return fallbackDisableExtensions
	case activeCore != core.DefaultID && !c.tried[fallbackDefaultCore]:
		c.tried[fallbackDefaultCore] = true
		delete(c.tried, fallbackDisableExtensions)
		return fallbackDefaultCore
	default:
		return fallbackNone
	}
}

// fallbackDiagnostic is shown before the retry of level executes.
func fallbackDiagnostic(level fallbackLevel, cause error) diag.Diagnostic {
	d := diag.Diagnostic{Severity: diag.SeverityError, Message: cause.Error()}
	switch level {
	case fallbackDisableExtensions:
		d.Title = "Error loading custom configuration files. Retrying without loading extensions."
	case fallbackDefaultCore:
		d.Title = "Error loading custom configuration files. Falling back to the default core files."
	default:
		d.Severity = diag.SeverityFatal
		d.Title = "Error loading default core configuration files. Resolution cannot continue."
	}
	return d
}
