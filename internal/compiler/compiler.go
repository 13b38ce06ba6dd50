// Package compiler turns content source files into configuration trees for
// a given flag set. It is the collaborator every loader asks for trees; the
// resolution core never parses sources itself.
package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/tree"
)

// Compiler builds the tree for a source path under a flag set. Results must
// be deterministic for a given (path, flags) pair. When schema is non-nil the
// tree is validated against it; validation findings never fail the compile.
type Compiler interface {
	Compile(ctx context.Context, path string, flags flagset.Set, schema *Schema) (*tree.Node, error)
}

// TreeError reports malformed source content.
type TreeError struct {
	Path    string
	Line    int
	Message string
}

func (e *TreeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// IOError reports an unreadable source path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsTreeError reports whether err is or wraps a *TreeError.
func IsTreeError(err error) bool {
	var te *TreeError
	return errors.As(err, &te)
}

// IsIOError reports whether err is or wraps an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
