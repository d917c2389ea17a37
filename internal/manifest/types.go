package manifest

import (
	"strconv"

	"go.yaml.in/yaml/v3"
)

// Manifest is the typed view of a parsed installer manifest. Decoding is
// permissive: sections or elements of the wrong shape decode to their zero
// value and contribute nothing. Validate is the strict pass.
type Manifest struct {
	Install     *InstallOptions
	Models      ModelSet
	CustomNodes []NodeEntry
	Workflows   []Workflow
}

// InstallOptions holds the scalar installation options.
type InstallOptions struct {
	ComfyDir string
	CPUOnly  bool
}

// ModelEntry is one element of a model list. A bare string in the document
// sets Bare; a mapping fills the named fields. An entry either carries its
// own locator (urn/url/id) or references a global entry by id via Ref.
type ModelEntry struct {
	Bare        string
	ID          string
	URN         string
	URL         string
	Ref         string
	Name        string
	Description string
}

// IsRef reports whether the entry is a reference into a global pool.
func (e ModelEntry) IsRef() bool { return e.Bare == "" && e.Ref != "" }

// Locator returns the entry's downloadable locator. A bare string entry is
// used as-is; mapping entries yield urn, then url, then id. The id fallback
// is a legacy quirk: it is only a real locator when the id happens to be a
// bare platform model id. Reference entries return "".
func (e ModelEntry) Locator() string {
	if e.Bare != "" {
		return e.Bare
	}
	if e.Ref != "" {
		return ""
	}
	switch {
	case e.URN != "":
		return e.URN
	case e.URL != "":
		return e.URL
	default:
		return e.ID
	}
}

// UnmarshalYAML accepts either a scalar locator or a field mapping. Other
// node kinds decode to the zero entry.
func (e *ModelEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			e.Bare = node.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				continue
			}
			switch key.Value {
			case "id":
				e.ID = val.Value
			case "urn":
				e.URN = val.Value
			case "url":
				e.URL = val.Value
			case "ref":
				e.Ref = val.Value
			case "name":
				e.Name = val.Value
			case "description":
				e.Description = val.Value
			}
		}
	}
	return nil
}

// NodeEntry is one element of a custom_nodes list: a git repository URL,
// optionally addressable by id, or (inside workflows) a reference to a
// global entry.
type NodeEntry struct {
	ID          string
	Name        string
	URL         string
	Ref         string
	Description string
}

// IsRef reports whether the entry references a global custom node.
func (n NodeEntry) IsRef() bool { return n.Ref != "" && n.URL == "" }

// UnmarshalYAML decodes a field mapping; other node kinds decode to the
// zero entry.
func (n *NodeEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			continue
		}
		switch key.Value {
		case "id":
			n.ID = val.Value
		case "name":
			n.Name = val.Value
		case "url":
			n.URL = val.Value
		case "ref":
			n.Ref = val.Value
		case "description":
			n.Description = val.Value
		}
	}
	return nil
}

// ModelSet is an ordered category → entry-list mapping. The reserved keys
// dest_dir and source_dir carry plain paths instead of entry lists. Order
// preserves the document's category order so resolution output is
// reproducible.
type ModelSet struct {
	DestDir    string
	SourceDir  string
	Order      []string
	Categories map[string][]ModelEntry
}

// Entries returns the entry list for a category, or nil.
func (s ModelSet) Entries(category string) []ModelEntry {
	return s.Categories[category]
}

// UnmarshalYAML decodes the category mapping, skipping values of the wrong
// shape.
func (s *ModelSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	s.Categories = make(map[string][]ModelEntry)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "dest_dir":
			if val.Kind == yaml.ScalarNode {
				s.DestDir = val.Value
			}
		case "source_dir":
			if val.Kind == yaml.ScalarNode {
				s.SourceDir = val.Value
			}
		default:
			if val.Kind != yaml.SequenceNode {
				continue
			}
			var entries []ModelEntry
			if err := val.Decode(&entries); err != nil {
				continue
			}
			s.Order = append(s.Order, key.Value)
			s.Categories[key.Value] = entries
		}
	}
	return nil
}

// Workflow is a named overlay bundling extra model and custom-node
// selections, possibly by reference into the global pools.
type Workflow struct {
	Name        string
	Description string
	Models      ModelSet
	CustomNodes []NodeEntry
}

// UnmarshalYAML decodes a workflow mapping; other node kinds decode to the
// zero workflow.
func (w *Workflow) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "name":
			if val.Kind == yaml.ScalarNode {
				w.Name = val.Value
			}
		case "description":
			if val.Kind == yaml.ScalarNode {
				w.Description = val.Value
			}
		case "models":
			if err := val.Decode(&w.Models); err != nil {
				continue
			}
		case "custom_nodes":
			if val.Kind != yaml.SequenceNode {
				continue
			}
			var nodes []NodeEntry
			if err := val.Decode(&nodes); err != nil {
				continue
			}
			w.CustomNodes = nodes
		}
	}
	return nil
}

// UnmarshalYAML decodes the manifest root, tolerating sections of the
// wrong shape.
func (m *Manifest) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "install":
			m.Install = decodeInstall(val)
		case "models":
			_ = val.Decode(&m.Models)
		case "custom_nodes":
			if val.Kind == yaml.SequenceNode {
				_ = val.Decode(&m.CustomNodes)
			}
		case "workflows":
			if val.Kind == yaml.SequenceNode {
				_ = val.Decode(&m.Workflows)
			}
		}
	}
	return nil
}

func decodeInstall(node *yaml.Node) *InstallOptions {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	// cpu_only defaults to true: the installer assumes no GPU unless the
	// manifest says otherwise.
	opts := &InstallOptions{CPUOnly: true}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			continue
		}
		switch key.Value {
		case "comfy_dir":
			opts.ComfyDir = val.Value
		case "cpu_only":
			if b, err := strconv.ParseBool(val.Value); err == nil {
				opts.CPUOnly = b
			}
		}
	}
	return opts
}

// Workflow returns the workflow with the given name, or nil.
func (m *Manifest) Workflow(name string) *Workflow {
	for i := range m.Workflows {
		if m.Workflows[i].Name == name {
			return &m.Workflows[i]
		}
	}
	return nil
}
