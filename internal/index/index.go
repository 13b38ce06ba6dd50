// Package index derives the secondary lookup tables that consumers need from
// a composed view. Every table is a pure function of the view and is rebuilt
// whenever the view changes.
package index

import (
	"log/slog"
	"sort"

	"github.com/dusk-indust/layercfg/internal/tree"
	"github.com/dusk-indust/layercfg/internal/view"
)

// Index holds the derived tables of one composed view.
type Index struct {
	// MultiplayerHashes maps multiplayer scenario ids to content hashes
	// used for compatibility checks between peers.
	MultiplayerHashes map[string]string
	UnitTypes         *UnitTypes
	Terrain           *Terrain
	// Textdomains maps a localized string domain to its catalogue path.
	Textdomains map[string]string
	Themes      []string
	Colors      *Colors
	BinaryPaths []string
	// About lists credit section titles in order.
	About   []string
	Preload []Script
}

// Summary is a flat count of the index contents.
type Summary struct {
	MultiplayerScenarios int `json:"multiplayer_scenarios"`
	UnitTypes            int `json:"unit_types"`
	UnitModifications    int `json:"unit_modifications"`
	TerrainTypes         int `json:"terrain_types"`
	TerrainRules         int `json:"terrain_rules"`
	Textdomains          int `json:"textdomains"`
	Themes               int `json:"themes"`
	ColorRanges          int `json:"color_ranges"`
	ColorPalettes        int `json:"color_palettes"`
	BinaryPaths          int `json:"binary_paths"`
	About                int `json:"about"`
	PreloadScripts       int `json:"preload_scripts"`
	BrokenScripts        int `json:"broken_scripts"`
}

// Build derives every table from v. Problems found while deriving, such as a
// preload script that does not parse, are logged as warnings.
func Build(v *view.Layered, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idx := &Index{
		MultiplayerHashes: MultiplayerHashes(v),
		UnitTypes:         BuildUnitTypes(v),
		Terrain:           BuildTerrain(v),
		Textdomains:       make(map[string]string),
		Colors:            BuildColors(v),
	}

	for _, td := range v.ChildRange("textdomain") {
		name := td.Get("name")
		if name == "" {
			continue
		}
		if _, dup := idx.Textdomains[name]; !dup {
			idx.Textdomains[name] = td.Get("path")
		}
	}
	idx.Themes = ids(v.ChildRange("theme"), "id")
	for _, bp := range v.ChildRange("binary_path") {
		if p := bp.Get("path"); p != "" {
			idx.BinaryPaths = append(idx.BinaryPaths, p)
		}
	}
	for _, about := range v.ChildRange("about") {
		idx.About = append(idx.About, about.Get("title"))
	}

	idx.Preload = ExtractPreload(v)
	for _, s := range idx.Preload {
		if s.Err != nil {
			logger.Warn("preload script does not parse", "script", s.Name, "error", s.Err)
		}
	}
	for _, dup := range idx.UnitTypes.Duplicates {
		logger.Warn("duplicate unit type ignored", "id", dup)
	}

	logger.Debug("indexes built", "summary", idx.Summary())
	return idx
}

// Summary returns the counts of idx.
func (idx *Index) Summary() Summary {
	if idx == nil {
		return Summary{}
	}
	s := Summary{
		MultiplayerScenarios: len(idx.MultiplayerHashes),
		UnitTypes:            len(idx.UnitTypes.Types),
		UnitModifications:    len(idx.UnitTypes.Modifications),
		TerrainTypes:         len(idx.Terrain.Types),
		TerrainRules:         idx.Terrain.Rules,
		Textdomains:          len(idx.Textdomains),
		Themes:               len(idx.Themes),
		ColorRanges:          len(idx.Colors.Ranges),
		ColorPalettes:        len(idx.Colors.Palettes),
		BinaryPaths:          len(idx.BinaryPaths),
		About:                len(idx.About),
		PreloadScripts:       len(idx.Preload),
	}
	for _, p := range idx.Preload {
		if p.Err != nil {
			s.BrokenScripts++
		}
	}
	return s
}

// MultiplayerHashes hashes every [multiplayer] declaration by id.
func MultiplayerHashes(v *view.Layered) map[string]string {
	out := make(map[string]string)
	for _, mp := range v.ChildRange("multiplayer") {
		out[mp.Get("id")] = mp.Hash()
	}
	return out
}

func ids(nodes []*tree.Node, key string) []string {
	seen := make(map[string]bool, len(nodes))
	var out []string
	for _, n := range nodes {
		id := n.Get(key)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
