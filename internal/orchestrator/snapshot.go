package orchestrator

import (
	"time"

	"github.com/dusk-indust/layercfg/internal/index"
)

// ExtensionStatus describes one loaded extension.
type ExtensionStatus struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Version string   `json:"version"`
	Core    string   `json:"core"`
	Type    string   `json:"type,omitempty"`
	Enabled bool     `json:"enabled"`
	Entries []string `json:"entries,omitempty"`
}

// Snapshot is a read-only copy of the resolver status.
type Snapshot struct {
	State      string `json:"state"`
	RunID      string `json:"runId,omitempty"`
	Resolved   bool   `json:"resolved"`
	ActiveCore string `json:"activeCore,omitempty"`
	// PreferredCore is the id the next full reload will try.
	PreferredCore      string            `json:"preferredCore"`
	Cores              []string          `json:"cores,omitempty"`
	Flags              []string          `json:"flags,omitempty"`
	Selection          []string          `json:"selection"`
	AllEnabled         bool              `json:"allEnabled"`
	ExtensionsDisabled bool              `json:"extensionsDisabled"`
	Extensions         []ExtensionStatus `json:"extensions,omitempty"`
	Failed             []string          `json:"failed,omitempty"`
	Index              index.Summary     `json:"index"`
	LastError          string            `json:"lastError,omitempty"`
	ResolvedAt         time.Time         `json:"resolvedAt,omitempty"`
}

// Snapshot returns the current status. It does not wait for a running pass.
func (r *Resolver) Snapshot() Snapshot {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()

	s := Snapshot{
		State:         r.state.String(),
		PreferredCore: r.statusPreferred,
		AllEnabled:    true,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	res := r.last
	if res == nil {
		return s
	}
	return res.fill(s)
}

// Snapshot describes res alone.
func (res *Resolution) Snapshot() Snapshot {
	return res.fill(Snapshot{State: StateReady.String(), AllEnabled: true})
}

func (res *Resolution) fill(s Snapshot) Snapshot {
	s.Resolved = true
	s.RunID = res.RunID
	s.ActiveCore = res.ActiveCore
	if s.PreferredCore == "" {
		s.PreferredCore = res.ActiveCore
	}
	for _, c := range res.Cores {
		s.Cores = append(s.Cores, c.ID)
	}
	s.Flags = res.Flags.Names()
	s.AllEnabled = res.Selection.IsAll()
	s.Selection = append([]string{}, res.Selection...)
	s.ExtensionsDisabled = res.ExtensionsDisabled
	s.Failed = append([]string(nil), res.Report.Failed...)
	s.Index = res.Index.Summary()
	s.ResolvedAt = res.ResolvedAt

	enabled := make(map[string]bool)
	for _, id := range res.View.Enabled() {
		enabled[id] = true
	}
	for _, id := range res.Order {
		p := res.Packages[id]
		s.Extensions = append(s.Extensions, ExtensionStatus{
			ID:      id,
			Title:   p.Metadata.Title,
			Version: p.Metadata.Version,
			Core:    p.Metadata.Core,
			Type:    p.Metadata.Type,
			Enabled: enabled[id],
			Entries: append([]string(nil), p.Entries...),
		})
	}
	return s
}
