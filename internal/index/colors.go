package index

import (
	"github.com/dusk-indust/layercfg/internal/view"
)

// Colors holds team color ranges and named palettes.
type Colors struct {
	// Ranges maps a range id to its rgb triple list.
	Ranges map[string][]string
	// Palettes maps a palette name to its color list.
	Palettes map[string][]string
}

// BuildColors reads [color_range] and [color_palette]. Later layers do not
// override ids already declared.
func BuildColors(v *view.Layered) *Colors {
	c := &Colors{Ranges: make(map[string][]string), Palettes: make(map[string][]string)}
	for _, cr := range v.ChildRange("color_range") {
		id := cr.Get("id")
		if id == "" {
			continue
		}
		if _, dup := c.Ranges[id]; !dup {
			c.Ranges[id] = splitList(cr.Get("rgb"))
		}
	}
	for _, cp := range v.ChildRange("color_palette") {
		for _, a := range cp.Attrs() {
			if _, dup := c.Palettes[a.Key]; !dup {
				c.Palettes[a.Key] = splitList(a.Value)
			}
		}
	}
	return c
}

// RangeIDs returns the color range ids sorted.
func (c *Colors) RangeIDs() []string {
	return sortedKeys(c.Ranges)
}
