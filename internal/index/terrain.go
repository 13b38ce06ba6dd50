package index

import (
	"strings"

	"github.com/dusk-indust/layercfg/internal/tree"
	"github.com/dusk-indust/layercfg/internal/view"
)

// Terrain holds terrain type data and the number of graphics rules.
type Terrain struct {
	// Types maps terrain codes to their declarations.
	Types map[string]*tree.Node
	Rules int
}

// BuildTerrain collects [terrain_type] and counts [terrain_graphics].
func BuildTerrain(v *view.Layered) *Terrain {
	t := &Terrain{Types: make(map[string]*tree.Node)}
	for _, tt := range v.ChildRange("terrain_type") {
		code := tt.Get("string")
		if code == "" {
			code = tt.Get("id")
		}
		if code == "" {
			continue
		}
		if _, dup := t.Types[code]; !dup {
			t.Types[code] = tt
		}
	}
	t.Rules = len(v.ChildRange("terrain_graphics"))
	return t
}

// Aliases returns the codes a terrain is an alias of.
func (t *Terrain) Aliases(code string) []string {
	tt, ok := t.Types[code]
	if !ok {
		return nil
	}
	return splitList(tt.Get("aliasof"))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
