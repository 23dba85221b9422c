package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinyidx/bptree"
)

// IndexDef describes one index the harness should create/open, as loaded
// from a YAML manifest. This is a convenience for the CLI only; the
// library itself never parses YAML, it takes bptree.Descriptor values.
type IndexDef struct {
	Name    string    `yaml:"name"`
	Path    string    `yaml:"path"`
	Key     ColumnDef `yaml:"key"`
	Payload ColumnDef `yaml:"payload"`
}

// ColumnDef is one YAML-shaped column descriptor: kind is "int", "float",
// or "string"; width is required for "string" and ignored otherwise.
type ColumnDef struct {
	Kind  string `yaml:"kind"`
	Width int32  `yaml:"width"`
}

// Manifest is the top-level shape of a bptidx config file.
type Manifest struct {
	Indexes []IndexDef `yaml:"indexes"`
}

func (c ColumnDef) toDescriptor() (bptree.Descriptor, error) {
	switch c.Kind {
	case "int":
		return bptree.Descriptor{Kind: bptree.KindInt32, Width: 4}, nil
	case "float":
		return bptree.Descriptor{Kind: bptree.KindFloat32, Width: 4}, nil
	case "string":
		return bptree.Descriptor{Kind: bptree.KindFixedString, Width: c.Width}, nil
	default:
		return bptree.Descriptor{}, fmt.Errorf("bptidx: unknown column kind %q", c.Kind)
	}
}

// LoadManifest reads and parses a YAML index manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bptidx: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("bptidx: parse manifest %s: %w", path, err)
	}
	return &m, nil
}
