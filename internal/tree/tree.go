// Package tree implements the ordered configuration tree shared by every
// resolution stage: a node has a tag, ordered attributes, and ordered
// children. Lookup by tag is positional-order preserving.
package tree

import (
	"fmt"
	"strings"
)

// Attr is one key/value attribute pair.
type Attr struct {
	Key   string
	Value string
}

// Node is a configuration tree node. The zero value is an empty, untagged
// root and is ready for use.
type Node struct {
	Tag      string
	attrs    []Attr
	children []*Node
}

// New returns an empty node with the given tag.
func New(tag string) *Node {
	return &Node{Tag: tag}
}

// NewWithAttrs returns a node with attributes given as alternating
// key/value strings. A trailing key without a value is ignored.
func NewWithAttrs(tag string, kv ...string) *Node {
	n := New(tag)
	for i := 0; i+1 < len(kv); i += 2 {
		n.Set(kv[i], kv[i+1])
	}
	return n
}

// Empty reports whether the node carries no attributes and no children.
func (n *Node) Empty() bool {
	return n == nil || (len(n.attrs) == 0 && len(n.children) == 0)
}

// Lookup returns the value of key and whether it is present.
func (n *Node) Lookup(key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Get returns the value of key, or "" when absent.
func (n *Node) Get(key string) string {
	v, _ := n.Lookup(key)
	return v
}

// Set assigns key, keeping the original position when it already exists.
func (n *Node) Set(key, value string) {
	for i := range n.attrs {
		if n.attrs[i].Key == key {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Key: key, Value: value})
}

// Unset removes key if present.
func (n *Node) Unset(key string) {
	for i := range n.attrs {
		if n.attrs[i].Key == key {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return
		}
	}
}

// Attrs returns a copy of the attributes in insertion order.
func (n *Node) Attrs() []Attr {
	if n == nil {
		return nil
	}
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// Children returns the child slice. Callers must not append to it.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// ChildRange returns every direct child with the given tag, in order.
func (n *Node) ChildRange(tag string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// ChildCount returns the number of direct children with the given tag.
func (n *Node) ChildCount(tag string) int {
	count := 0
	for _, c := range n.Children() {
		if c.Tag == tag {
			count++
		}
	}
	return count
}

// Child returns the first child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildOrEmpty returns the first child with the given tag, or a fresh empty
// node so that attribute reads on missing sections stay simple.
func (n *Node) ChildOrEmpty(tag string) *Node {
	if c := n.Child(tag); c != nil {
		return c
	}
	return New(tag)
}

// FindChild returns the first child with the given tag whose attribute key
// equals value, or nil.
func (n *Node) FindChild(tag, key, value string) *Node {
	for _, c := range n.Children() {
		if c.Tag == tag && c.Get(key) == value {
			return c
		}
	}
	return nil
}

// AddChild appends a new empty child with the given tag and returns it.
func (n *Node) AddChild(tag string) *Node {
	c := New(tag)
	n.children = append(n.children, c)
	return c
}

// AppendChild attaches c as the last child. The node takes ownership of c.
func (n *Node) AppendChild(c *Node) {
	if c == nil {
		return
	}
	n.children = append(n.children, c)
}

// Append copies other's attributes (overwriting existing keys) and deep
// copies of its children onto n.
func (n *Node) Append(other *Node) {
	if other == nil {
		return
	}
	for _, a := range other.attrs {
		n.Set(a.Key, a.Value)
	}
	for _, c := range other.children {
		n.children = append(n.children, c.Clone())
	}
}

// AppendChildrenByMove transfers every child of src with the given tag to
// the end of n. The moved nodes are removed from src, so no node is ever
// reachable from both trees.
func (n *Node) AppendChildrenByMove(src *Node, tag string) {
	if src == nil || src == n {
		return
	}
	kept := src.children[:0]
	for _, c := range src.children {
		if c.Tag == tag {
			n.children = append(n.children, c)
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(src.children); i++ {
		src.children[i] = nil
	}
	src.children = kept
}

// MoveChildren transfers all children of src to n, leaving src without
// children.
func (n *Node) MoveChildren(src *Node) {
	if src == nil || src == n {
		return
	}
	n.children = append(n.children, src.children...)
	src.children = nil
}

// RemoveChildren drops every child with the given tag for which remove
// returns true and reports how many were dropped. A nil predicate removes all
// children with the tag.
func (n *Node) RemoveChildren(tag string, remove func(*Node) bool) int {
	kept := n.children[:0]
	removed := 0
	for _, c := range n.children {
		if c.Tag == tag && (remove == nil || remove(c)) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(n.children); i++ {
		n.children[i] = nil
	}
	n.children = kept
	return removed
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Tag: n.Tag}
	if len(n.attrs) > 0 {
		out.attrs = make([]Attr, len(n.attrs))
		copy(out.attrs, n.attrs)
	}
	if len(n.children) > 0 {
		out.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			out.children[i] = c.Clone()
		}
	}
	return out
}

// Walk visits n and every descendant depth-first in document order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Debug renders the node in a bracketed, indented form for diagnostics.
func (n *Node) Debug() string {
	var b strings.Builder
	n.debug(&b, 0)
	return b.String()
}

func (n *Node) debug(b *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, a := range n.attrs {
		fmt.Fprintf(b, "%s%s=%q\n", indent, a.Key, a.Value)
	}
	for _, c := range n.children {
		fmt.Fprintf(b, "%s[%s]\n", indent, c.Tag)
		c.debug(b, depth+1)
		fmt.Fprintf(b, "%s[/%s]\n", indent, c.Tag)
	}
}
