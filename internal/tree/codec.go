package tree

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// encMode uses Core Deterministic Encoding so that equal trees always
// produce identical bytes, which Hash depends on.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("tree: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("tree: CBOR decoder initialization failed: " + err.Error())
	}
}

// wireNode is the serialized shape. Attributes are pairs so order survives.
type wireNode struct {
	Tag      string      `cbor:"1,keyasint"`
	Attrs    [][2]string `cbor:"2,keyasint,omitempty"`
	Children []wireNode  `cbor:"3,keyasint,omitempty"`
}

func toWire(n *Node) wireNode {
	w := wireNode{Tag: n.Tag}
	if len(n.attrs) > 0 {
		w.Attrs = make([][2]string, len(n.attrs))
		for i, a := range n.attrs {
			w.Attrs[i] = [2]string{a.Key, a.Value}
		}
	}
	if len(n.children) > 0 {
		w.Children = make([]wireNode, len(n.children))
		for i, c := range n.children {
			w.Children[i] = toWire(c)
		}
	}
	return w
}

func fromWire(w wireNode) *Node {
	n := New(w.Tag)
	for _, a := range w.Attrs {
		n.attrs = append(n.attrs, Attr{Key: a[0], Value: a[1]})
	}
	for _, c := range w.Children {
		n.children = append(n.children, fromWire(c))
	}
	return n
}

// Encode serializes n to deterministic CBOR.
func Encode(n *Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("tree: encode nil node")
	}
	return encMode.Marshal(toWire(n))
}

// Decode parses CBOR produced by Encode.
func Decode(data []byte) (*Node, error) {
	var w wireNode
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("tree: decode: %w", err)
	}
	return fromWire(w), nil
}

// Hash returns the hex blake3 digest of the node's deterministic encoding.
// Two subtrees hash equal iff their tags, ordered attributes and ordered
// children are equal.
func (n *Node) Hash() string {
	if n == nil {
		n = New("")
	}
	data, err := Encode(n)
	if err != nil {
		// Encoding a wireNode of plain strings cannot fail.
		panic("tree: hash encode: " + err.Error())
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
