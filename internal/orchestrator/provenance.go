package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dusk-indust/layercfg/internal/extension"
	"github.com/dusk-indust/layercfg/internal/provenance"
)

// recordProvenance replaces the store contents with what st's packages
// contributed. Store failures are logged and never fail the pass.
func (r *Resolver) recordProvenance(ctx context.Context, logger *slog.Logger, st *resolutionState) {
	if r.cfg.Store == nil {
		return
	}
	enabled := make(map[string]bool)
	for _, id := range st.view.Enabled() {
		enabled[id] = true
	}

	records := make([]provenance.Record, 0, len(st.order))
	for _, id := range st.order {
		pkg := st.packages[id]
		rec := provenance.Record{Package: provenance.PackageNode{
			ID:      id,
			Title:   pkg.Metadata.Title,
			Version: pkg.Metadata.Version,
			Core:    pkg.Metadata.Core,
			Enabled: enabled[id],
		}}
		for _, e := range pkg.Entries {
			tag, entryID, _ := strings.Cut(e, ":")
			node := provenance.EntryNode{Tag: tag, ID: entryID}
			for _, c := range st.base.ChildRange(tag) {
				if c.Get("id") == entryID && c.Get(extension.AttrSourceID) == id {
					node.Hash = c.Hash()
					break
				}
			}
			rec.Entries = append(rec.Entries, node)
		}
		records = append(records, rec)
	}

	if err := provenance.Replace(ctx, r.cfg.Store, records); err != nil {
		logger.Warn("provenance not recorded", "error", err)
	}
}
