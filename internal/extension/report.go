package extension

import (
	"strings"

	"github.com/dusk-indust/layercfg/internal/diag"
)

// Report aggregates per-package failures of one load pass.
type Report struct {
	// Failed lists the offending files or descriptors.
	Failed []string
	// Log holds one explanatory entry per failure where one is available.
	Log []string
}

func (r *Report) add(failed, log string) {
	r.Failed = append(r.Failed, failed)
	if log != "" {
		r.Log = append(r.Log, log)
	}
}

// Empty reports whether nothing failed.
func (r Report) Empty() bool {
	return len(r.Failed) == 0
}

// Diagnostic renders the report as a single user-facing message.
func (r Report) Diagnostic() diag.Diagnostic {
	title := "The following extension had errors and could not be loaded:"
	msg := "Please report this to the author or maintainer of this extension."
	if len(r.Failed) != 1 {
		title = "The following extensions had errors and could not be loaded:"
		msg = "Please report this to the respective authors or maintainers of these extensions."
	}
	return diag.Diagnostic{
		Severity: diag.SeverityError,
		Title:    title,
		Message:  msg,
		Items:    append([]string(nil), r.Failed...),
		Details:  strings.Join(r.Log, "\n\n"),
	}
}
