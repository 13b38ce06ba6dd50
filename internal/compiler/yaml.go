package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/tree"
)

// maxIncludeDepth bounds include chains so that cycles fail instead of
// recursing forever.
const maxIncludeDepth = 32

// Compile-time check.
var _ Compiler = (*YAMLCompiler)(nil)

// YAMLCompiler reads content sources written as YAML mappings:
//
//	scalar values          -> attributes, in document order
//	mapping values         -> one child with the key as tag
//	sequence of mappings   -> one child per item
//	sequence of scalars    -> comma-joined attribute
//	"ifdef FLAG": {...}    -> spliced in when FLAG is defined
//	"ifndef FLAG": {...}   -> spliced in when FLAG is not defined
//	include: path | [paths] -> children and attributes of another source,
//	                           relative to the including file
type YAMLCompiler struct {
	logger *slog.Logger
}

// NewYAMLCompiler returns a YAMLCompiler. A nil logger discards output.
func NewYAMLCompiler(logger *slog.Logger) *YAMLCompiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &YAMLCompiler{logger: logger}
}

// Compile implements Compiler.
func (c *YAMLCompiler) Compile(ctx context.Context, path string, flags flagset.Set, schema *Schema) (*tree.Node, error) {
	root := tree.New("")
	b := &builder{ctx: ctx, flags: flags}
	if err := b.file(root, path, 0); err != nil {
		return nil, err
	}
	if schema != nil {
		for _, f := range schema.Validate(root) {
			c.logger.Warn("schema validation", "path", path, "finding", f.String())
		}
	}
	return root, nil
}

type builder struct {
	ctx   context.Context
	flags flagset.Set
}

func (b *builder) file(target *tree.Node, path string, depth int) error {
	if depth > maxIncludeDepth {
		return &TreeError{Path: path, Message: "include depth exceeded (cycle?)"}
	}
	if err := b.ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &TreeError{Path: path, Message: err.Error()}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil // empty document
	}
	top := doc.Content[0]
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return nil
	}
	if top.Kind != yaml.MappingNode {
		return &TreeError{Path: path, Line: top.Line, Message: "top level must be a mapping"}
	}
	return b.mapping(target, top, path, depth)
}

func (b *builder) mapping(target *tree.Node, m *yaml.Node, path string, depth int) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		keyNode, val := m.Content[i], m.Content[i+1]
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}
		key := keyNode.Value

		if flag, negate, ok := conditional(key); ok {
			if b.flags.Has(flag) == negate {
				continue
			}
			if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
				continue
			}
			if val.Kind != yaml.MappingNode {
				return &TreeError{Path: path, Line: keyNode.Line, Message: fmt.Sprintf("%q must hold a mapping", key)}
			}
			if err := b.mapping(target, val, path, depth); err != nil {
				return err
			}
			continue
		}

		if key == "include" {
			if err := b.include(target, val, path, depth); err != nil {
				return err
			}
			continue
		}

		switch val.Kind {
		case yaml.ScalarNode:
			v := val.Value
			if val.Tag == "!!null" {
				v = ""
			}
			target.Set(key, v)
		case yaml.MappingNode:
			if err := b.mapping(target.AddChild(key), val, path, depth); err != nil {
				return err
			}
		case yaml.SequenceNode:
			if err := b.sequence(target, key, val, path, depth); err != nil {
				return err
			}
		default:
			return &TreeError{Path: path, Line: val.Line, Message: fmt.Sprintf("unsupported value for %q", key)}
		}
	}
	return nil
}

func (b *builder) sequence(target *tree.Node, key string, seq *yaml.Node, path string, depth int) error {
	var scalars []string
	children := 0
	for _, item := range seq.Content {
		if item.Kind == yaml.AliasNode {
			item = item.Alias
		}
		switch item.Kind {
		case yaml.MappingNode:
			children++
			if err := b.mapping(target.AddChild(key), item, path, depth); err != nil {
				return err
			}
		case yaml.ScalarNode:
			scalars = append(scalars, item.Value)
		default:
			return &TreeError{Path: path, Line: item.Line, Message: fmt.Sprintf("unsupported item in %q", key)}
		}
	}
	if children > 0 && len(scalars) > 0 {
		return &TreeError{Path: path, Line: seq.Line, Message: fmt.Sprintf("%q mixes scalars and mappings", key)}
	}
	if len(scalars) > 0 || (children == 0 && len(seq.Content) == 0) {
		target.Set(key, strings.Join(scalars, ","))
	}
	return nil
}

func (b *builder) include(target *tree.Node, val *yaml.Node, path string, depth int) error {
	var refs []string
	switch val.Kind {
	case yaml.ScalarNode:
		refs = []string{val.Value}
	case yaml.SequenceNode:
		for _, item := range val.Content {
			if item.Kind != yaml.ScalarNode {
				return &TreeError{Path: path, Line: item.Line, Message: "include entries must be paths"}
			}
			refs = append(refs, item.Value)
		}
	default:
		return &TreeError{Path: path, Line: val.Line, Message: "include must be a path or list of paths"}
	}

	for _, ref := range refs {
		p := ref
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		sub := tree.New("")
		if err := b.file(sub, p, depth+1); err != nil {
			return err
		}
		for _, a := range sub.Attrs() {
			target.Set(a.Key, a.Value)
		}
		target.MoveChildren(sub)
	}
	return nil
}

// conditional parses "ifdef NAME" / "ifndef NAME" keys.
func conditional(key string) (flag string, negate bool, ok bool) {
	switch {
	case strings.HasPrefix(key, "ifdef "):
		return strings.TrimSpace(strings.TrimPrefix(key, "ifdef ")), false, true
	case strings.HasPrefix(key, "ifndef "):
		return strings.TrimSpace(strings.TrimPrefix(key, "ifndef ")), true, true
	default:
		return "", false, false
	}
}
