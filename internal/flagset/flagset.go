// Package flagset holds the symbolic build flags that select conditional
// content sections, and decides whether a change of flags or of the enabled
// extension selection requires rebuilding the configuration tree.
package flagset

import (
	"sort"
	"strings"
)

// Set maps a symbolic flag name to its value. Boolean flags carry "".
type Set map[string]string

// Of builds a Set of valueless flags.
func Of(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = ""
	}
	return s
}

// Parse builds a Set from "NAME" and "NAME=VALUE" items. Blank names are
// skipped; a later item overrides an earlier one.
func Parse(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		name, value, _ := strings.Cut(item, "=")
		if name = strings.TrimSpace(name); name != "" {
			s[name] = value
		}
	}
	return s
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Has reports whether name is defined.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// With returns a copy with name defined to value when cond holds; otherwise
// a plain copy. It mirrors a scoped define that only applies conditionally.
func (s Set) With(name, value string, cond bool) Set {
	out := s.Clone()
	if cond && name != "" {
		out[name] = value
	}
	return out
}

// Equal reports set equality of entries.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	return Includes(other, s)
}

// Names returns the flag names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Key returns a canonical string form usable as a cache key.
func (s Set) Key() string {
	var b strings.Builder
	for i, name := range s.Names() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		if v := s[name]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

// Includes reports whether every entry of special appears with an equal
// value in general (special is a compatible subset of general).
func Includes(general, special Set) bool {
	for k, v := range special {
		gv, ok := general[k]
		if !ok || gv != v {
			return false
		}
	}
	return true
}
