package flagset

// Mode selects how strictly a new flag set must match the previous one for
// the existing tree to be reused.
type Mode int

const (
	// Strict reuses the tree only when the flag sets are equal.
	Strict Mode = iota
	// AllowSupersetReuse reuses the tree when flags were only added.
	AllowSupersetReuse
	// ForceReload always rebuilds.
	ForceReload
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case AllowSupersetReuse:
		return "allow-superset"
	case ForceReload:
		return "force"
	default:
		return "unknown"
	}
}

// Decision is the outcome of comparing two resolution inputs.
type Decision int

const (
	// NoReload keeps the resolved tree and overlay as they are.
	NoReload Decision = iota
	// PartialReload keeps the base tree but recomposes the extension overlay
	// and everything derived from it.
	PartialReload
	// FullReload rebuilds the base tree from scratch.
	FullReload
)

func (d Decision) String() string {
	switch d {
	case NoReload:
		return "no-reload"
	case PartialReload:
		return "partial-reload"
	case FullReload:
		return "full-reload"
	default:
		return "unknown"
	}
}

// Decide classifies a flag change. It never returns PartialReload: flags
// only affect compilation, so a flag change always means a full rebuild.
func Decide(previous, current Set, mode Mode) Decision {
	switch mode {
	case Strict:
		if current.Equal(previous) {
			return NoReload
		}
	case AllowSupersetReuse:
		if Includes(current, previous) {
			return NoReload
		}
	}
	return FullReload
}

// Selection is the set of enabled extension ids. A nil Selection means every
// discovered extension is enabled; an empty non-nil Selection enables none.
// Order is insertion order and duplicates are dropped.
type Selection []string

// All is the selection that enables every loaded extension.
var All Selection

// Select builds a Selection from ids, dropping duplicates and keeping the
// first occurrence. It never returns nil.
func Select(ids ...string) Selection {
	seen := make(map[string]bool, len(ids))
	out := make(Selection, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IsAll reports whether the selection enables everything.
func (s Selection) IsAll() bool { return s == nil }

// Contains reports whether id is explicitly selected or the selection is All.
func (s Selection) Contains(id string) bool {
	if s.IsAll() {
		return true
	}
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// SameAs compares two selections as sets; All only equals All.
func (s Selection) SameAs(other Selection) bool {
	if s.IsAll() || other.IsAll() {
		return s.IsAll() == other.IsAll()
	}
	if len(s) != len(other) {
		return false
	}
	set := make(map[string]bool, len(s))
	for _, v := range s {
		set[v] = true
	}
	for _, v := range other {
		if !set[v] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy, preserving All.
func (s Selection) Clone() Selection {
	if s == nil {
		return nil
	}
	out := make(Selection, len(s))
	copy(out, s)
	return out
}

// DecideReload combines the flag axis and the selection axis. A flag
// decision of NoReload is upgraded to PartialReload when the enabled
// extension selection changed; a FullReload is never downgraded.
func DecideReload(previous, current Set, mode Mode, prevSel, nextSel Selection) Decision {
	d := Decide(previous, current, mode)
	if d == NoReload && !prevSel.SameAs(nextSel) {
		return PartialReload
	}
	return d
}
