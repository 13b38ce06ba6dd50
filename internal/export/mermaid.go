package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/layercfg/internal/provenance"
)

// GenerateMermaid produces a Mermaid graph TD diagram of the provenance
// graph. Each package becomes a subgraph of the entries it declared first
// and hangs off the active core; disabled packages use dotted links.
func GenerateMermaid(ctx context.Context, activeCore string, store provenance.Store) (string, error) {
	packages, err := store.Packages(ctx)
	if err != nil {
		return "", fmt.Errorf("get packages: %w", err)
	}

	// Mermaid node ids must be alphanumeric.
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	coreID := getID("core:" + activeCore)
	fmt.Fprintf(&sb, "  %s[(\"%s\")]\n", coreID, label(activeCore))

	var links []string
	placed := make(map[string]bool) // entry key -> already inside a subgraph
	for _, p := range packages {
		entries, err := store.EntriesOf(ctx, p.ID)
		if err != nil {
			return "", fmt.Errorf("entries of %s: %w", p.ID, err)
		}
		pkgID := getID("pkg:" + p.ID)
		title := p.ID
		if p.Title != "" && p.Title != p.ID {
			title = p.Title + " (" + p.ID + ")"
		}

		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", pkgID, label(title))
		for _, e := range entries {
			key := "entry:" + e.Key()
			if placed[key] {
				// Redeclared entry: link to the first declaration.
				links = append(links, fmt.Sprintf("  %s -.-> %s\n", pkgID, getID(key)))
				continue
			}
			placed[key] = true
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", getID(key), label(e.Key()))
		}
		sb.WriteString("  end\n")

		arrow := "-->"
		if !p.Enabled {
			arrow = "-.->"
		}
		links = append(links, fmt.Sprintf("  %s %s %s\n", coreID, arrow, pkgID))
	}

	for _, l := range links {
		sb.WriteString(l)
	}
	return sb.String(), nil
}

// label makes s safe inside a quoted Mermaid label.
func label(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
