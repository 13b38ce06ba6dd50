// Package failure defines the error taxonomy shared by the resolution
// stages. Stages wrap causes in a *ResolutionError so the orchestrator can
// tell per-item problems from pipeline-level ones with errors.As.
package failure

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/layercfg/internal/compiler"
)

// Kind classifies a resolution error.
type Kind int

const (
	// Validation marks a malformed core or extension descriptor. The item
	// is excluded and resolution continues.
	Validation Kind = iota + 1
	// Compile marks a content source that failed to build.
	Compile
	// IO marks an unreadable path.
	IO
	// Inconsistency marks an impossible request, such as validating an
	// extension that was never loaded.
	Inconsistency
	// Fatal marks a failure no fallback can repair.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Compile:
		return "compile"
	case IO:
		return "io"
	case Inconsistency:
		return "configuration-inconsistency"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel causes.
var (
	ErrNoDefaultCore           = errors.New("cannot locate the default core")
	ErrValidationTargetMissing = errors.New("validation target extension was not found")
	ErrFallbacksExhausted      = errors.New("all fallback levels exhausted")
)

// ResolutionError is a classified failure of one resolution operation.
type ResolutionError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// New builds a ResolutionError.
func New(kind Kind, op string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Op: op, Err: err}
}

// FromCompile classifies a compiler error as IO or Compile.
func FromCompile(op string, err error) *ResolutionError {
	if compiler.IsIOError(err) {
		return New(IO, op, err)
	}
	return New(Compile, op, err)
}

// KindOf returns the kind of the first ResolutionError in err's chain, or 0.
func KindOf(err error) Kind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// IsFatal reports whether err is classified Fatal.
func IsFatal(err error) bool {
	return KindOf(err) == Fatal
}
