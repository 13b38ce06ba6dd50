package mcptools

import (
	"github.com/dusk-indust/layercfg/internal/index"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
	"github.com/dusk-indust/layercfg/internal/provenance"
)

// --- MCP Tool Types ---
// The MCP Go SDK generates each tool's JSON schema from these struct tags.

// ResolveInput is the input for the resolve MCP tool.
type ResolveInput struct {
	Flags      []string `json:"flags,omitempty" jsonschema:"build flags, NAME or NAME=VALUE"`
	Mode       string   `json:"mode,omitempty" jsonschema:"reuse policy: strict (default), allow-superset or force"`
	Extensions []string `json:"extensions,omitempty" jsonschema:"extension ids to enable in order; omit to enable all"`
}

// ResolveOutput is the result of the resolve MCP tool.
type ResolveOutput struct {
	Status     string        `json:"status"` // "ready" or "failed"
	RunID      string        `json:"runId,omitempty"`
	Decision   string        `json:"decision,omitempty"`
	ActiveCore string        `json:"activeCore,omitempty"`
	Enabled    []string      `json:"enabled,omitempty"`
	Failed     []string      `json:"failed,omitempty"`
	Index      index.Summary `json:"index"`
	Message    string        `json:"message,omitempty"`
}

// GetStatusInput is the input for the get_status MCP tool.
type GetStatusInput struct{}

// GetStatusOutput is the result of the get_status MCP tool.
type GetStatusOutput struct {
	State              string        `json:"state"`
	RunID              string        `json:"runId,omitempty"`
	Resolved           bool          `json:"resolved"`
	ActiveCore         string        `json:"activeCore,omitempty"`
	PreferredCore      string        `json:"preferredCore,omitempty"`
	Flags              []string      `json:"flags,omitempty"`
	Selection          []string      `json:"selection,omitempty"`
	AllEnabled         bool          `json:"allEnabled"`
	ExtensionsDisabled bool          `json:"extensionsDisabled"`
	Index              index.Summary `json:"index"`
	LastError          string        `json:"lastError,omitempty"`
	ResolvedAt         string        `json:"resolvedAt,omitempty"` // RFC 3339
}

// ListExtensionsInput is the input for the list_extensions MCP tool.
type ListExtensionsInput struct {
	EnabledOnly bool `json:"enabledOnly,omitempty" jsonschema:"only list extensions enabled in the composed view"`
}

// ListExtensionsOutput is the result of the list_extensions MCP tool.
type ListExtensionsOutput struct {
	Extensions []orchestrator.ExtensionStatus `json:"extensions"`
	Failed     []string                       `json:"failed,omitempty"`
}

// ListCoresInput is the input for the list_cores MCP tool.
type ListCoresInput struct{}

// ListCoresOutput is the result of the list_cores MCP tool.
type ListCoresOutput struct {
	Active    string   `json:"active"`
	Preferred string   `json:"preferred"`
	Cores     []string `json:"cores"`
}

// FindProviderInput is the input for the find_provider MCP tool.
type FindProviderInput struct {
	Tag string `json:"tag" jsonschema:"entry tag, e.g. era or modification"`
	ID  string `json:"id" jsonschema:"entry id"`
}

// FindProviderOutput is the result of the find_provider MCP tool.
type FindProviderOutput struct {
	Found   bool                    `json:"found"`
	Package *provenance.PackageNode `json:"package,omitempty"`
}
