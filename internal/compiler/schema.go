package compiler

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/layercfg/internal/tree"
)

// Schema is a light structural contract for resolved trees: which top-level
// tags may appear and which keys each tag requires.
type Schema struct {
	// Tags maps a tag to its rule. Top-level children whose tag is absent
	// are reported when Closed is set.
	Tags   map[string]TagRule `yaml:"tags"`
	Closed bool               `yaml:"closed"`
}

// TagRule constrains every node with a given tag, at any depth.
type TagRule struct {
	Required []string `yaml:"required"`
}

// Finding is one schema violation.
type Finding struct {
	Path    string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// LoadSchema reads a schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &TreeError{Path: path, Message: err.Error()}
	}
	return &s, nil
}

// Validate walks root and returns every violation in document order.
func (s *Schema) Validate(root *tree.Node) []Finding {
	if s == nil || root == nil {
		return nil
	}
	var out []Finding
	for _, c := range root.Children() {
		if _, ok := s.Tags[c.Tag]; !ok && s.Closed {
			out = append(out, Finding{Path: "[" + c.Tag + "]", Message: "unknown top-level tag"})
		}
		s.validateNode(c, "["+c.Tag+"]", &out)
	}
	return out
}

func (s *Schema) validateNode(n *tree.Node, path string, out *[]Finding) {
	if rule, ok := s.Tags[n.Tag]; ok {
		required := append([]string(nil), rule.Required...)
		sort.Strings(required)
		for _, key := range required {
			if _, present := n.Lookup(key); !present {
				*out = append(*out, Finding{Path: path, Message: fmt.Sprintf("missing required key %q", key)})
			}
		}
	}
	for _, c := range n.Children() {
		s.validateNode(c, path+"["+c.Tag+"]", out)
	}
}
