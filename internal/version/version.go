// Package version parses the free-form version strings carried by extension
// metadata and formats them canonically, so that provenance stamps compare
// equal regardless of how an author wrote them.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Info is a parsed version: dot-separated numeric components followed by an
// optional special suffix ("1.14.0+dev", "0.9beta").
type Info struct {
	components []uint64
	sep        byte
	special    string
}

// Parse reads s leniently. Missing numeric components are zero; a suffix
// that is not numeric becomes the special part. Parse never fails: a string
// with no leading number yields 0.0.0 with the whole input as special.
func Parse(s string) Info {
	s = strings.TrimSpace(s)
	var v Info

	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	numeric := strings.TrimRight(s[:end], ".")
	rest := s[len(numeric):]

	if numeric != "" {
		for _, part := range strings.Split(numeric, ".") {
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				n = 0
			}
			v.components = append(v.components, n)
		}
	}
	if rest != "" {
		switch rest[0] {
		case '+', '-', '.', ' ', '~':
			v.sep = rest[0]
			rest = rest[1:]
		}
		v.special = rest
	}
	return v
}

// Major, Minor and Revision return the first three components.
func (v Info) Major() uint64    { return v.component(0) }
func (v Info) Minor() uint64    { return v.component(1) }
func (v Info) Revision() uint64 { return v.component(2) }

// Special returns the suffix after the numeric components.
func (v Info) Special() string { return v.special }

func (v Info) component(i int) uint64 {
	if i < len(v.components) {
		return v.components[i]
	}
	return 0
}

// String formats the canonical form: at least three numeric components,
// then any further components, then the separator and special suffix.
func (v Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major(), v.Minor(), v.Revision())
	for i := 3; i < len(v.components); i++ {
		fmt.Fprintf(&b, ".%d", v.components[i])
	}
	if v.special != "" {
		if v.sep != 0 {
			b.WriteByte(v.sep)
		}
		b.WriteString(v.special)
	}
	return b.String()
}

// Canonical is shorthand for Parse(s).String().
func Canonical(s string) string {
	return Parse(s).String()
}

// Compare orders two versions: first by major.minor.revision, then by any
// further components, then a version without special suffix sorts after one
// with a suffix of equal numbers, then suffixes compare lexically.
func Compare(a, b Info) int {
	if c := semver.Compare(a.semverCore(), b.semverCore()); c != 0 {
		return c
	}
	n := max(len(a.components), len(b.components))
	for i := 3; i < n; i++ {
		x, y := a.component(i), b.component(i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	switch {
	case a.special == b.special:
		return 0
	case a.special == "":
		return 1
	case b.special == "":
		return -1
	case a.special < b.special:
		return -1
	default:
		return 1
	}
}

func (v Info) semverCore() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major(), v.Minor(), v.Revision())
}
