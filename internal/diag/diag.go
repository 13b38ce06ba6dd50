// Package diag carries user-facing diagnostics from the resolution worker to
// the interactive goroutine. The worker only enqueues; display happens
// wherever the owner drains the queue.
package diag

import (
	"fmt"
	"strings"
	"sync"
)

// Severity orders diagnostics by how much attention they need.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Diagnostic is one message for the user.
type Diagnostic struct {
	Severity Severity
	Title    string
	Message  string
	// Items lists the affected files or ids, one per line.
	Items []string
	// Details holds the long-form report, shown collapsed.
	Details string
}

// String renders the diagnostic as plain text.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", d.Severity, d.Title)
	if d.Message != "" {
		b.WriteString("\n")
		b.WriteString(d.Message)
	}
	for _, item := range d.Items {
		b.WriteString("\n  ")
		b.WriteString(item)
	}
	if d.Details != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Details)
	}
	return b.String()
}

// Sink displays diagnostics. Implementations run on the interactive side and
// need not be safe for concurrent use.
type Sink interface {
	ShowError(d Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Diagnostic)

// ShowError calls f(d).
func (f SinkFunc) ShowError(d Diagnostic) { f(d) }

// Poster is the worker-side half of a Queue.
type Poster interface {
	Post(d Diagnostic)
	Call(fn func())
}

// Compile-time check.
var _ Poster = (*Queue)(nil)

// item is either a diagnostic to display or a function to run.
type item struct {
	diag *Diagnostic
	fn   func()
}

// Queue is an unbounded FIFO of display work. Post and Call never block and
// never drop; Drain runs queued work in order on the caller's goroutine.
type Queue struct {
	mu     sync.Mutex
	items  []item
	notify chan struct{}
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Post enqueues a diagnostic for display.
func (q *Queue) Post(d Diagnostic) {
	q.push(item{diag: &d})
}

// Call enqueues fn to run on the draining goroutine.
func (q *Queue) Call(fn func()) {
	if fn == nil {
		return
	}
	q.push(item{fn: fn})
}

func (q *Queue) push(it item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
		// A wake-up is already pending.
	}
}

// Notify returns a channel that receives after new work has been queued.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain runs every pending item in order: diagnostics go to sink, queued
// functions are invoked. Items posted while draining are handled too.
// It returns the number of diagnostics shown.
func (q *Queue) Drain(sink Sink) int {
	shown := 0
	for {
		q.mu.Lock()
		pending := q.items
		q.items = nil
		q.mu.Unlock()
		if len(pending) == 0 {
			return shown
		}
		for _, it := range pending {
			switch {
			case it.diag != nil:
				if sink != nil {
					sink.ShowError(*it.diag)
				}
				shown++
			case it.fn != nil:
				it.fn()
			}
		}
	}
}

// Collector is a Sink that records what it was shown, for tests and
// non-interactive callers.
type Collector struct {
	mu    sync.Mutex
	Items []Diagnostic
}

// ShowError records d.
func (c *Collector) ShowError(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Items = append(c.Items, d)
}

// Titles returns the titles of every recorded diagnostic.
func (c *Collector) Titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Items))
	for i, d := range c.Items {
		out[i] = d.Title
	}
	return out
}
