package extension

import (
	"strings"

	"github.com/dusk-indust/layercfg/internal/tree"
)

// DeprecationLevel says how far along a construct is in being removed.
type DeprecationLevel int

const (
	// ForRemoval constructs still work but will be dropped.
	ForRemoval DeprecationLevel = iota + 1
	// Removed constructs no longer have any effect.
	Removed
)

func (l DeprecationLevel) String() string {
	switch l {
	case ForRemoval:
		return "for-removal"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Notice is an informational deprecation message raised while loading.
type Notice struct {
	Extension string
	Subject   string
	Level     DeprecationLevel
	Since     string
	Message   string
}

// removedFlags are advancement toggles that used to be flags and are now
// declared inside the campaign itself.
var removedFlags = map[string]bool{
	"ENABLE_PARAGON":             true,
	"DISABLE_GRAND_MARSHAL":      true,
	"ENABLE_ARMAGEDDON_DRAKE":    true,
	"ENABLE_DWARVISH_ARCANISTER": true,
	"ENABLE_DWARVISH_RUNESMITH":  true,
	"ENABLE_WOLF_ADVANCEMENT":    true,
	"ENABLE_NIGHTBLADE":          true,
	"ENABLE_TROLL_SHAMAN":        true,
	"ENABLE_ANCIENT_LICH":        true,
	"ENABLE_DEATH_KNIGHT":        true,
	"ENABLE_WOSE_SHAMAN":         true,
}

// migrateAdvanceFrom rewrites every [units][unit_type][advancefrom] into an
// equivalent [modify_unit_type] and attaches the rewrites to the owning
// declaration: the first [campaign], else the first entry declaration, else
// the package root. The legacy nodes are removed.
func migrateAdvanceFrom(id string, content *tree.Node) []Notice {
	var rewrites []*tree.Node
	var notices []Notice

	for _, units := range content.ChildRange("units") {
		for _, ut := range units.ChildRange("unit_type") {
			for _, af := range ut.ChildRange("advancefrom") {
				m := tree.NewWithAttrs("modify_unit_type",
					"type", ut.Get("id"),
					"add_advancement", af.Get("unit"),
					"set_experience", af.Get("experience"),
				)
				rewrites = append(rewrites, m)
				notices = append(notices, Notice{
					Extension: id,
					Subject:   "[advancefrom]",
					Level:     ForRemoval,
					Since:     "1.17.0",
					Message:   "Use [modify_unit_type]\n" + m.Debug() + " [/modify_unit_type] instead in [campaign]",
				})
			}
			ut.RemoveChildren("advancefrom", nil)
		}
	}
	if len(rewrites) == 0 {
		return nil
	}

	owner := owningDeclaration(content)
	for _, m := range rewrites {
		owner.AppendChild(m)
	}
	return notices
}

func owningDeclaration(content *tree.Node) *tree.Node {
	if c := content.Child("campaign"); c != nil {
		return c
	}
	for _, c := range content.Children() {
		if isEntryTag(c.Tag) {
			return c
		}
	}
	return content
}

// checkRemovedFlags reports extra flags declared by campaigns that no
// longer exist. Loading is never blocked.
func checkRemovedFlags(id string, content *tree.Node) []Notice {
	var notices []Notice
	for _, campaign := range content.ChildRange("campaign") {
		for _, name := range strings.Split(campaign.Get("extra_defines"), ",") {
			name = strings.TrimSpace(name)
			if !removedFlags[name] {
				continue
			}
			notices = append(notices, Notice{
				Extension: id,
				Subject:   "extra_defines=" + name,
				Level:     Removed,
				Since:     "1.15.4",
				Message:   "instead, use the macro with the same name in the [campaign] tag",
			})
		}
	}
	return notices
}
