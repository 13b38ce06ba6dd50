package extension

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/layercfg/internal/flagset"
	"github.com/dusk-indust/layercfg/internal/fsenum"
)

// Metadata describes an extension package.
type Metadata struct {
	Title   string
	Version string
	// Type is the package kind; CoreType packages bypass the core filter.
	Type string
	// Core is the id of the core this package targets.
	Core string
	// Source names where the metadata came from: "publish", "info" or
	// "defaults".
	Source string
}

// CoreType is the package type of extensions that provide a core.
const CoreType = "core"

// publishInfo is the author-maintained publishing descriptor.
type publishInfo struct {
	Title        string   `yaml:"title"`
	Version      string   `yaml:"version"`
	Type         string   `yaml:"type"`
	Core         string   `yaml:"core"`
	Author       string   `yaml:"author"`
	Description  string   `yaml:"description"`
	Icon         string   `yaml:"icon"`
	Email        string   `yaml:"email"`
	Tags         []string `yaml:"tags"`
	Dependencies []string `yaml:"dependencies"`
	Translations []any    `yaml:"translations"`
}

// ErrInvalidPublishInfo marks an unreadable or malformed publishing
// descriptor.
var ErrInvalidPublishInfo = errors.New("invalid publishing descriptor")

func readPublishInfo(path string) (publishInfo, error) {
	var info publishInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("%w: %v", ErrInvalidPublishInfo, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&info); err != nil {
		return info, fmt.Errorf("%w: %s: %v", ErrInvalidPublishInfo, path, err)
	}
	return info, nil
}

// resolveMetadata applies the precedence publishing descriptor > info cache
// > defaults. A malformed publishing descriptor is returned as an error
// alongside the defaulted metadata so the caller can report it and go on.
func (l *Loader) resolveMetadata(ctx context.Context, id, dir string, flags flagset.Set) (Metadata, error) {
	md := Metadata{Source: "defaults"}
	var pblErr error

	pbl := filepath.Join(dir, PublishFile)
	info := filepath.Join(dir, InfoFile)
	switch {
	case fsenum.FileExists(pbl):
		p, err := readPublishInfo(pbl)
		if err != nil {
			pblErr = err
			break
		}
		md = Metadata{Title: p.Title, Version: p.Version, Type: p.Type, Core: p.Core, Source: "publish"}
	case fsenum.FileExists(info):
		t, err := l.opts.Compiler.Compile(ctx, info, flags, nil)
		if err != nil {
			l.logger.Warn("unreadable extension info cache", "extension", id, "path", info, "error", err)
			break
		}
		n := t.ChildOrEmpty("info")
		md = Metadata{
			Title:   n.Get("title"),
			Version: n.Get("version"),
			Type:    n.Get("type"),
			Core:    n.Get("core"),
			Source:  "info",
		}
	}

	if md.Title == "" {
		md.Title = id
	}
	if md.Core == "" {
		md.Core = "default"
	}
	return md, pblErr
}
