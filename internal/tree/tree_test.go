package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Node {
	root := New("")
	era := root.AddChild("era")
	era.Set("id", "default")
	era.Set("name", "Default")
	camp := root.AddChild("campaign")
	camp.Set("id", "heir")
	root.AddChild("era").Set("id", "ageless")
	return root
}

func TestNode_SetKeepsPosition(t *testing.T) {
	n := NewWithAttrs("unit_type", "id", "Elvish Fighter", "cost", "14")
	n.Set("id", "Elvish Hero")

	attrs := n.Attrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, Attr{Key: "id", Value: "Elvish Hero"}, attrs[0])
	assert.Equal(t, "14", n.Get("cost"))

	_, ok := n.Lookup("missing")
	assert.False(t, ok)
}

func TestNode_ChildRangeAndFind(t *testing.T) {
	root := sampleTree()

	eras := root.ChildRange("era")
	require.Len(t, eras, 2)
	assert.Equal(t, "default", eras[0].Get("id"))
	assert.Equal(t, "ageless", eras[1].Get("id"))

	assert.Same(t, eras[1], root.FindChild("era", "id", "ageless"))
	assert.Nil(t, root.FindChild("era", "id", "nope"))
	assert.True(t, root.ChildOrEmpty("units").Empty())
	assert.Equal(t, 2, root.ChildCount("era"))
}

func TestNode_AppendChildrenByMove(t *testing.T) {
	base := New("")
	base.AddChild("era").Set("id", "base")
	pkg := sampleTree()
	pkg.AddChild("units")

	base.AppendChildrenByMove(pkg, "era")

	assert.Equal(t, 3, base.ChildCount("era"))
	assert.Equal(t, 0, pkg.ChildCount("era"))
	assert.Equal(t, 1, pkg.ChildCount("campaign"))
	assert.Equal(t, 1, pkg.ChildCount("units"))

	// Moved nodes keep their order after the existing ones.
	eras := base.ChildRange("era")
	assert.Equal(t, []string{"base", "default", "ageless"}, []string{
		eras[0].Get("id"), eras[1].Get("id"), eras[2].Get("id"),
	})
}

func TestNode_AppendCopies(t *testing.T) {
	dst := NewWithAttrs("", "a", "1")
	src := sampleTree()
	src.Set("a", "2")

	dst.Append(src)
	assert.Equal(t, "2", dst.Get("a"))
	require.Equal(t, 2, dst.ChildCount("era"))

	// Mutating the source after append must not leak into dst.
	src.Child("era").Set("id", "changed")
	assert.Equal(t, "default", dst.Child("era").Get("id"))
}

func TestNode_RemoveChildren(t *testing.T) {
	root := sampleTree()
	removed := root.RemoveChildren("era", func(n *Node) bool { return n.Get("id") == "default" })
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, root.ChildCount("era"))

	removed = root.RemoveChildren("campaign", nil)
	assert.Equal(t, 1, removed)
	assert.Nil(t, root.Child("campaign"))
}

func TestNode_CloneIsDeep(t *testing.T) {
	root := sampleTree()
	c := root.Clone()
	c.Child("era").Set("id", "other")
	assert.Equal(t, "default", root.Child("era").Get("id"))
}

func TestCodec_RoundTripAndHash(t *testing.T) {
	root := sampleTree()
	data, err := Encode(root)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, root.Debug(), back.Debug())
	assert.Equal(t, root.Hash(), back.Hash())
}

func TestHash_SensitiveToOrder(t *testing.T) {
	a := NewWithAttrs("multiplayer", "id", "2p", "name", "Two")
	b := NewWithAttrs("multiplayer", "name", "Two", "id", "2p")
	c := NewWithAttrs("multiplayer", "id", "2p", "name", "Two")

	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestDebug_Format(t *testing.T) {
	n := NewWithAttrs("", "type", "Elvish Fighter")
	n.AddChild("effect").Set("apply_to", "hitpoints")
	want := "type=\"Elvish Fighter\"\n[effect]\n\tapply_to=\"hitpoints\"\n[/effect]\n"
	assert.Equal(t, want, n.Debug())
}
