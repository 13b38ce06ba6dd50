package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dusk-indust/layercfg/internal/orchestrator"
	"github.com/dusk-indust/layercfg/internal/provenance"
)

// ResolutionExport is the top-level JSON export structure.
type ResolutionExport struct {
	ExportedAt string                `json:"exportedAt"`
	Status     orchestrator.Snapshot `json:"status"`
	Layers     []LayerExport         `json:"layers"`
}

// LayerExport describes one layer of the composed view, bottom first.
type LayerExport struct {
	ID      string        `json:"id"`
	Kind    string        `json:"kind"` // "core" or "extension"
	Title   string        `json:"title,omitempty"`
	Version string        `json:"version,omitempty"`
	Enabled bool          `json:"enabled"`
	Entries []EntryExport `json:"entries,omitempty"`
}

// EntryExport is one entry declaration a layer contributed.
type EntryExport struct {
	Tag  string `json:"tag"`
	ID   string `json:"id"`
	Hash string `json:"hash,omitempty"`
}

// ExportResolution builds a ResolutionExport from a status snapshot. Entries
// come from store when it is non-nil, otherwise from the snapshot itself.
func ExportResolution(ctx context.Context, snap orchestrator.Snapshot, store provenance.Store) (*ResolutionExport, error) {
	if !snap.Resolved {
		return nil, fmt.Errorf("export: nothing resolved yet")
	}

	out := &ResolutionExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Status:     snap,
		Layers: []LayerExport{{
			ID:      snap.ActiveCore,
			Kind:    "core",
			Enabled: true,
		}},
	}

	for _, ext := range snap.Extensions {
		layer := LayerExport{
			ID:      ext.ID,
			Kind:    "extension",
			Title:   ext.Title,
			Version: ext.Version,
			Enabled: ext.Enabled,
		}
		if store != nil {
			entries, err := store.EntriesOf(ctx, ext.ID)
			if err != nil {
				return nil, fmt.Errorf("entries of %s: %w", ext.ID, err)
			}
			for _, e := range entries {
				layer.Entries = append(layer.Entries, EntryExport(e))
			}
		} else {
			for _, key := range ext.Entries {
				tag, id, _ := strings.Cut(key, ":")
				layer.Entries = append(layer.Entries, EntryExport{Tag: tag, ID: id})
			}
		}
		out.Layers = append(out.Layers, layer)
	}
	return out, nil
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
