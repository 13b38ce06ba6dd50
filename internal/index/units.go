package index

import (
	"github.com/dusk-indust/layercfg/internal/tree"
	"github.com/dusk-indust/layercfg/internal/view"
)

// UnitTypes is the unit-type registry built from every [units] block.
type UnitTypes struct {
	Types map[string]*tree.Node
	// Order is the declaration order of Types.
	Order []string
	// Modifications are [modify_unit_type] declarations found under any
	// entry declaration, keyed by the unit type they change.
	Modifications map[string][]*tree.Node
	// Duplicates lists ids declared more than once; the first wins.
	Duplicates []string
	Races      []string
	Movetypes  []string
}

// BuildUnitTypes merges the [units] children of all layers.
func BuildUnitTypes(v *view.Layered) *UnitTypes {
	u := &UnitTypes{
		Types:         make(map[string]*tree.Node),
		Modifications: make(map[string][]*tree.Node),
	}
	var races, movetypes []*tree.Node
	for _, units := range v.ChildRange("units") {
		for _, ut := range units.ChildRange("unit_type") {
			id := ut.Get("id")
			if id == "" {
				continue
			}
			if _, dup := u.Types[id]; dup {
				u.Duplicates = append(u.Duplicates, id)
				continue
			}
			u.Types[id] = ut
			u.Order = append(u.Order, id)
		}
		races = append(races, units.ChildRange("race")...)
		movetypes = append(movetypes, units.ChildRange("movetype")...)
	}
	u.Races = ids(races, "id")
	u.Movetypes = ids(movetypes, "name")

	for _, tag := range []string{"campaign", "era", "modification", "multiplayer", "scenario", "resource"} {
		for _, decl := range v.ChildRange(tag) {
			for _, m := range decl.ChildRange("modify_unit_type") {
				typ := m.Get("type")
				u.Modifications[typ] = append(u.Modifications[typ], m)
			}
		}
	}
	return u
}

// Advancements returns the advancement targets of id, including those added
// by modifications, without duplicates.
func (u *UnitTypes) Advancements(id string) []string {
	ut, ok := u.Types[id]
	if !ok {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(list string) {
		for _, a := range splitList(list) {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	add(ut.Get("advances_to"))
	for _, m := range u.Modifications[id] {
		add(m.Get("add_advancement"))
	}
	return out
}
