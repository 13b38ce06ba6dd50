package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/layercfg/internal/diag"
)

func TestCascade_Order(t *testing.T) {
	c := newCascade()
	assert.Equal(t, fallbackDisableExtensions, c.next(true, "alt"))
	// Extensions are off now.
	assert.Equal(t, fallbackDefaultCore, c.next(false, "alt"))
	assert.Equal(t, fallbackNone, c.next(false, "default"))
}

func TestCascade_EachRungOnce(t *testing.T) {
	c := newCascade()
	assert.Equal(t, fallbackDisableExtensions, c.next(true, "default"))
	// Even if something re-enabled extensions, the rung is spent.
	assert.Equal(t, fallbackNone, c.next(true, "default"))

	c = newCascade()
	assert.Equal(t, fallbackDefaultCore, c.next(false, "alt"))
	assert.Equal(t, fallbackNone, c.next(false, "alt"))
}

func TestCascade_DefaultCoreReopensDisableExtensions(t *testing.T) {
	c := newCascade()
	assert.Equal(t, fallbackDisableExtensions, c.next(true, "alt"))
	assert.Equal(t, fallbackDefaultCore, c.next(false, "alt"))
	// Extensions are back on for the default core.
	assert.Equal(t, fallbackDisableExtensions, c.next(true, "default"))
	assert.Equal(t, fallbackNone, c.next(false, "default"))
}

func TestFallbackDiagnostic(t *testing.T) {
	cause := errors.New("boom")

	d := fallbackDiagnostic(fallbackDisableExtensions, cause)
	assert.Equal(t, diag.SeverityError, d.Severity)
	assert.Equal(t, "boom", d.Message)

	d = fallbackDiagnostic(fallbackNone, cause)
	assert.Equal(t, diag.SeverityFatal, d.Severity)
	assert.Contains(t, d.Title, "cannot continue")
	assert.Equal(t, "default-core", fallbackDefaultCore.String())
}
