// Package view composes the base tree and the enabled extension trees into
// one read-only logical tree without merging them.
package view

import (
	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/tree"
)

// Layer is one tree in the composed view.
type Layer struct {
	// ID is empty for the base layer.
	ID   string
	Tree *tree.Node
}

// Layered is an ordered list of layers. The first layer is always the base.
// Member trees are never mutated.
type Layered struct {
	layers []Layer
}

// New returns a view holding only base.
func New(base *tree.Node) *Layered {
	if base == nil {
		base = tree.New("")
	}
	return &Layered{layers: []Layer{{Tree: base}}}
}

// SetEnabled rebuilds the layers as base followed by the enabled packages.
// With flagset.All every package in order is enabled; otherwise the
// selection's own order is used. Ids missing from packages are ignored.
func (v *Layered) SetEnabled(packages map[string]*tree.Node, order []string, sel flagset.Selection) {
	ids := order
	if !sel.IsAll() {
		ids = sel
	}
	layers := []Layer{v.layers[0]}
	for _, id := range ids {
		t, ok := packages[id]
		if !ok || t == nil {
			continue
		}
		layers = append(layers, Layer{ID: id, Tree: t})
	}
	v.layers = layers
}

// Base returns the base layer's tree.
func (v *Layered) Base() *tree.Node { return v.layers[0].Tree }

// Layers returns a copy of the layer list.
func (v *Layered) Layers() []Layer {
	return append([]Layer(nil), v.layers...)
}

// Enabled returns the ids of the extension layers in order.
func (v *Layered) Enabled() []string {
	ids := make([]string, 0, len(v.layers)-1)
	for _, l := range v.layers[1:] {
		ids = append(ids, l.ID)
	}
	return ids
}

// Lookup returns the value of key from the first layer that has it.
func (v *Layered) Lookup(key string) (string, bool) {
	for _, l := range v.layers {
		if val, ok := l.Tree.Lookup(key); ok {
			return val, true
		}
	}
	return "", false
}

// Get is Lookup without the presence flag.
func (v *Layered) Get(key string) string {
	val, _ := v.Lookup(key)
	return val
}

// ChildRange concatenates every layer's children with the given tag, in
// layer order.
func (v *Layered) ChildRange(tag string) []*tree.Node {
	var out []*tree.Node
	for _, l := range v.layers {
		out = append(out, l.Tree.ChildRange(tag)...)
	}
	return out
}

// FindChild returns the first child across layers with tag whose key equals
// value.
func (v *Layered) FindChild(tag, key, value string) *tree.Node {
	for _, l := range v.layers {
		if c := l.Tree.FindChild(tag, key, value); c != nil {
			return c
		}
	}
	return nil
}

// Flatten materializes the view into a single new tree. Attributes are
// resolved by Lookup; children are appended in layer order.
func (v *Layered) Flatten() *tree.Node {
	out := tree.New(v.layers[0].Tree.Tag)
	for _, l := range v.layers {
		for _, a := range l.Tree.Attrs() {
			if _, ok := out.Lookup(a.Key); !ok {
				out.Set(a.Key, a.Value)
			}
		}
		for _, c := range l.Tree.Children() {
			out.AppendChild(c.Clone())
		}
	}
	return out
}
