package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/tree"
)

func fixture() (*tree.Node, map[string]*tree.Node, []string) {
	base := tree.NewWithAttrs("", "name", "base", "only_base", "1")
	base.AddChild("era").Set("id", "b_era")

	a := tree.NewWithAttrs("", "name", "a", "only_a", "x")
	a.AddChild("era").Set("id", "a_era")
	a.AddChild("units")

	b := tree.NewWithAttrs("", "only_a", "from_b")
	b.AddChild("era").Set("id", "b2_era")

	return base, map[string]*tree.Node{"a": a, "b": b}, []string{"a", "b"}
}

func TestSetEnabled_All(t *testing.T) {
	base, pkgs, order := fixture()
	v := New(base)
	v.SetEnabled(pkgs, order, flagset.All)

	assert.Equal(t, []string{"a", "b"}, v.Enabled())
	eras := v.ChildRange("era")
	require.Len(t, eras, 3)
	assert.Equal(t, "b_era", eras[0].Get("id"))
	assert.Equal(t, "a_era", eras[1].Get("id"))
	assert.Equal(t, "b2_era", eras[2].Get("id"))
}

func TestSetEnabled_UnknownIgnored(t *testing.T) {
	base, pkgs, order := fixture()
	v := New(base)
	v.SetEnabled(pkgs, order, flagset.Select("x"))

	require.Len(t, v.Layers(), 1)
	assert.Same(t, base, v.Base())
	assert.Empty(t, v.Enabled())
}

func TestSetEnabled_SelectionOrder(t *testing.T) {
	base, pkgs, order := fixture()
	v := New(base)
	v.SetEnabled(pkgs, order, flagset.Select("b", "a"))
	assert.Equal(t, []string{"b", "a"}, v.Enabled())

	v.SetEnabled(pkgs, order, flagset.Select("a"))
	assert.Equal(t, []string{"a"}, v.Enabled())
}

func TestLookup_BaseWins(t *testing.T) {
	base, pkgs, order := fixture()
	v := New(base)
	v.SetEnabled(pkgs, order, flagset.All)

	assert.Equal(t, "base", v.Get("name"))
	assert.Equal(t, "x", v.Get("only_a"))
	_, ok := v.Lookup("missing")
	assert.False(t, ok)
	assert.NotNil(t, v.FindChild("era", "id", "a_era"))
	assert.Nil(t, v.FindChild("era", "id", "nope"))
}

func TestFlatten_DoesNotMutateLayers(t *testing.T) {
	base, pkgs, order := fixture()
	v := New(base)
	v.SetEnabled(pkgs, order, flagset.All)
	beforeBase := base.Hash()
	beforeA := pkgs["a"].Hash()

	flat := v.Flatten()
	assert.Equal(t, 3, flat.ChildCount("era"))
	assert.Equal(t, "base", flat.Get("name"))
	assert.Equal(t, "x", flat.Get("only_a"))
	assert.Equal(t, beforeBase, base.Hash())
	assert.Equal(t, beforeA, pkgs["a"].Hash())
}
