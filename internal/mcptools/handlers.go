package mcptools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/orchestrator"
	"github.com/dusk-indust/layercfg/internal/provenance"
)

// Resolver is what the tools need from the resolution engine.
type Resolver interface {
	orchestrator.Orchestrator
	Snapshot() orchestrator.Snapshot
}

// ConfigService handles MCP tool calls against one resolver.
type ConfigService struct {
	resolver Resolver
	store    provenance.Store
	// base flags are merged under every resolve request.
	base flagset.Set
}

// NewConfigService creates a ConfigService. store may be nil, in which case
// find_provider reports an error.
func NewConfigService(resolver Resolver, store provenance.Store, base flagset.Set) *ConfigService {
	return &ConfigService{resolver: resolver, store: store, base: base.Clone()}
}

// Resolve runs a resolution pass. A failed pass is reported in the output,
// not as a tool error.
func (s *ConfigService) Resolve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	mode, err := parseMode(input.Mode)
	if err != nil {
		return nil, ResolveOutput{}, err
	}

	flags := s.base.Clone()
	for k, v := range flagset.Parse(input.Flags...) {
		flags[k] = v
	}
	sel := flagset.All
	if input.Extensions != nil {
		sel = flagset.Select(input.Extensions...)
	}

	res, err := s.resolver.Resolve(ctx, orchestrator.Request{Flags: flags, Mode: mode, Selection: sel})
	if err != nil {
		return nil, ResolveOutput{Status: "failed", Message: err.Error()}, nil
	}
	return nil, ResolveOutput{
		Status:     "ready",
		RunID:      res.RunID,
		Decision:   res.Decision.String(),
		ActiveCore: res.ActiveCore,
		Enabled:    res.View.Enabled(),
		Failed:     res.Report.Failed,
		Index:      res.Index.Summary(),
	}, nil
}

// GetStatus returns the resolver snapshot.
func (s *ConfigService) GetStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	snap := s.resolver.Snapshot()
	out := GetStatusOutput{
		State:              snap.State,
		RunID:              snap.RunID,
		Resolved:           snap.Resolved,
		ActiveCore:         snap.ActiveCore,
		PreferredCore:      snap.PreferredCore,
		Flags:              snap.Flags,
		Selection:          snap.Selection,
		AllEnabled:         snap.AllEnabled,
		ExtensionsDisabled: snap.ExtensionsDisabled,
		Index:              snap.Index,
		LastError:          snap.LastError,
	}
	if !snap.ResolvedAt.IsZero() {
		out.ResolvedAt = snap.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

// ListExtensions lists the extensions loaded by the last resolution.
func (s *ConfigService) ListExtensions(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListExtensionsInput,
) (*mcp.CallToolResult, ListExtensionsOutput, error) {
	snap := s.resolver.Snapshot()
	out := ListExtensionsOutput{Extensions: []orchestrator.ExtensionStatus{}, Failed: snap.Failed}
	for _, ext := range snap.Extensions {
		if input.EnabledOnly && !ext.Enabled {
			continue
		}
		out.Extensions = append(out.Extensions, ext)
	}
	return nil, out, nil
}

// ListCores lists the valid cores of the last resolution.
func (s *ConfigService) ListCores(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListCoresInput,
) (*mcp.CallToolResult, ListCoresOutput, error) {
	snap := s.resolver.Snapshot()
	cores := snap.Cores
	if cores == nil {
		cores = []string{}
	}
	return nil, ListCoresOutput{
		Active:    snap.ActiveCore,
		Preferred: snap.PreferredCore,
		Cores:     cores,
	}, nil
}

// FindProvider reports which extension declared an entry.
func (s *ConfigService) FindProvider(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindProviderInput,
) (*mcp.CallToolResult, FindProviderOutput, error) {
	if input.Tag == "" || input.ID == "" {
		return nil, FindProviderOutput{}, fmt.Errorf("tag and id are required")
	}
	if s.store == nil {
		return nil, FindProviderOutput{}, fmt.Errorf("provenance is not recorded")
	}
	pkg, err := s.store.ProviderOf(ctx, input.Tag, input.ID)
	if errors.Is(err, provenance.ErrNotFound) {
		return nil, FindProviderOutput{}, nil
	}
	if err != nil {
		return nil, FindProviderOutput{}, fmt.Errorf("provider of %s:%s: %w", input.Tag, input.ID, err)
	}
	return nil, FindProviderOutput{Found: true, Package: pkg}, nil
}

func parseMode(s string) (flagset.Mode, error) {
	switch s {
	case "", "strict":
		return flagset.Strict, nil
	case "allow-superset", "superset":
		return flagset.AllowSupersetReuse, nil
	case "force":
		return flagset.ForceReload, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}
