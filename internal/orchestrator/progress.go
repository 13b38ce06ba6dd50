package orchestrator

import "fmt"

// ProgressEvent is emitted on every state transition of a pass.
type ProgressEvent struct {
	Run     string
	State   State
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.State {
	case StateReady:
		return fmt.Sprintf("  ✓ %s", event.State)
	case StateNoOp:
		return fmt.Sprintf("  = %s (nothing to reload)", event.State)
	case StateRecovering:
		return fmt.Sprintf("  ↻ %s: %s", event.State, event.Message)
	case StateFailed:
		return fmt.Sprintf("  ✗ %s: %s", event.State, event.Message)
	default:
		if event.Message != "" {
			return fmt.Sprintf("  ● %s: %s", event.State, event.Message)
		}
		return fmt.Sprintf("  ● %s...", event.State)
	}
}
