package manifest

import (
	"errors"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ErrNotMapping is returned when the document parses but its root is not a
// mapping (e.g. a bare list or scalar). This is a fatal condition, distinct
// from a manifest that merely contains violations.
var ErrNotMapping = errors.New("manifest root must be a mapping")

// Document is a manifest parsed once and shared by the validator and the
// resolver. Root preserves the raw node tree, key order included, for
// the structural checks; Manifest is the typed view the resolver consumes.
type Document struct {
	Source   []byte
	Root     *yaml.Node
	Manifest *Manifest
}

// Load reads and parses a manifest file. Any error here is fatal in the
// validation taxonomy: unreadable file, malformed YAML, or a non-mapping
// root.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses manifest bytes. An empty or null document is a valid empty
// manifest.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return emptyDocument(data), nil
		}
		node = node.Content[0]
	}
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return emptyDocument(data), nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	var m Manifest
	if err := node.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &Document{Source: data, Root: node, Manifest: &m}, nil
}

func emptyDocument(data []byte) *Document {
	return &Document{
		Source:   data,
		Root:     &yaml.Node{Kind: yaml.MappingNode},
		Manifest: &Manifest{},
	}
}
