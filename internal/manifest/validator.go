package manifest

import (
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Validate statically checks a parsed manifest for structural correctness
// and referential integrity. It never stops at the first problem: every
// violation is collected, in document order, and returned together. An
// empty result means the manifest is valid.
//
// Fatal conditions (unreadable file, malformed YAML, non-mapping root) are
// Load/Parse errors and never reach this function.
func Validate(doc *Document) []string {
	v := &validator{}
	root := doc.Root

	v.checkTopLevelKeys(root)
	v.checkInstall(mappingValue(root, "install"))
	v.checkModels(mappingValue(root, "models"))
	v.checkCustomNodes(mappingValue(root, "custom_nodes"))
	v.checkWorkflows(mappingValue(root, "workflows"))
	v.checkReferences(root)

	return v.violations
}

type validator struct {
	violations []string
}

func (v *validator) addf(format string, args ...interface{}) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

var allowedTopLevel = map[string]bool{
	"install":      true,
	"models":       true,
	"custom_nodes": true,
	"workflows":    true,
}

func (v *validator) checkTopLevelKeys(root *yaml.Node) {
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if !allowedTopLevel[key] {
			v.addf("Unknown top-level key: %s", key)
		}
	}
}

func (v *validator) checkInstall(install *yaml.Node) {
	if isAbsent(install) || isEmptyCollection(install) {
		return
	}
	if install.Kind != yaml.MappingNode {
		v.addf("install section must be a mapping")
		return
	}
	for i := 0; i+1 < len(install.Content); i += 2 {
		key := install.Content[i].Value
		if key != "comfy_dir" && key != "cpu_only" {
			v.addf("install: unknown key %s", key)
		}
	}
	if cpuOnly := mappingValue(install, "cpu_only"); cpuOnly != nil && !isBool(cpuOnly) {
		v.addf("install.cpu_only must be boolean")
	}
}

func (v *validator) checkModels(models *yaml.Node) {
	if isAbsent(models) || isEmptyCollection(models) {
		return
	}
	if models.Kind != yaml.MappingNode {
		v.addf("models section must be a mapping")
		return
	}
	for i := 0; i+1 < len(models.Content); i += 2 {
		key, val := models.Content[i].Value, models.Content[i+1]
		if key == "dest_dir" || key == "source_dir" {
			continue
		}
		v.checkModelList(fmt.Sprintf("models.%s", key), val)
	}
}

// checkModelList applies the element rules shared by global and workflow
// model categories. prefix names the list, e.g. "models.checkpoints" or
// "workflows[0].models.loras".
func (v *validator) checkModelList(prefix string, list *yaml.Node) {
	if list.Kind != yaml.SequenceNode {
		v.addf("%s must be a list", prefix)
		return
	}
	for idx, item := range list.Content {
		switch {
		case isString(item):
			// Bare locator, nothing to check.
		case item.Kind == yaml.MappingNode:
			hasContent := hasAnyKey(item, "urn", "url", "id", "ref")
			if !hasContent {
				v.addf("%s[%d] must have 'urn', 'url', 'id', or 'ref' field", prefix, idx)
			}
			if hasKey(item, "ref") && hasAnyKey(item, "urn", "url", "id") {
				v.addf("%s[%d] cannot have both 'ref' and direct content fields", prefix, idx)
			}
		default:
			v.addf("%s[%d] must be str or mapping", prefix, idx)
		}
	}
}

func (v *validator) checkCustomNodes(nodes *yaml.Node) {
	if isAbsent(nodes) || isEmptyCollection(nodes) {
		return
	}
	if nodes.Kind != yaml.SequenceNode {
		v.addf("custom_nodes must be a list")
		return
	}
	for idx, node := range nodes.Content {
		if node.Kind != yaml.MappingNode {
			v.addf("custom_nodes[%d] must be mapping with 'url' or 'id'", idx)
			continue
		}
		// Global custom nodes carry a url for direct installs or an id so
		// workflows can reference them.
		if !hasAnyKey(node, "url", "id") {
			v.addf("custom_nodes[%d] missing 'url' or 'id' field", idx)
		}
	}
}

func (v *validator) checkWorkflows(workflows *yaml.Node) {
	if isAbsent(workflows) || isEmptyCollection(workflows) {
		return
	}
	if workflows.Kind != yaml.SequenceNode {
		v.addf("workflows must be a list")
		return
	}
	for idx, wf := range workflows.Content {
		if wf.Kind != yaml.MappingNode {
			v.addf("workflows[%d] must be mapping", idx)
			continue
		}
		if !hasKey(wf, "name") {
			v.addf("workflows[%d] missing 'name' field", idx)
		}
		v.checkWorkflowModels(idx, mappingValue(wf, "models"))
		v.checkWorkflowNodes(idx, mappingValue(wf, "custom_nodes"))
	}
}

func (v *validator) checkWorkflowModels(wfIdx int, models *yaml.Node) {
	if isAbsent(models) || isEmptyCollection(models) {
		return
	}
	if models.Kind != yaml.MappingNode {
		v.addf("workflows[%d].models must be a mapping", wfIdx)
		return
	}
	for i := 0; i+1 < len(models.Content); i += 2 {
		key, val := models.Content[i].Value, models.Content[i+1]
		v.checkModelList(fmt.Sprintf("workflows[%d].models.%s", wfIdx, key), val)
	}
}

func (v *validator) checkWorkflowNodes(wfIdx int, nodes *yaml.Node) {
	if isAbsent(nodes) || isEmptyCollection(nodes) {
		return
	}
	if nodes.Kind != yaml.SequenceNode {
		v.addf("workflows[%d].custom_nodes must be a list", wfIdx)
		return
	}
	for idx, node := range nodes.Content {
		if node.Kind != yaml.MappingNode {
			v.addf("workflows[%d].custom_nodes[%d] must be mapping with 'url' or 'ref'", wfIdx, idx)
			continue
		}
		if !hasAnyKey(node, "url", "ref") {
			v.addf("workflows[%d].custom_nodes[%d] missing 'url' or 'ref' field", wfIdx, idx)
		}
		if hasKey(node, "ref") && hasKey(node, "url") {
			v.addf("workflows[%d].custom_nodes[%d] cannot have both 'ref' and 'url' fields", wfIdx, idx)
		}
	}
}

// checkReferences verifies that every workflow-level ref resolves against
// the global pools: model refs against ids in the same models category,
// custom-node refs against ids in the global custom_nodes list.
func (v *validator) checkReferences(root *yaml.Node) {
	modelIDs := globalModelIDs(mappingValue(root, "models"))
	nodeIDs := globalNodeIDs(mappingValue(root, "custom_nodes"))

	workflows := mappingValue(root, "workflows")
	if workflows == nil || workflows.Kind != yaml.SequenceNode {
		return
	}
	for wfIdx, wf := range workflows.Content {
		if wf.Kind != yaml.MappingNode {
			continue
		}

		if models := mappingValue(wf, "models"); models != nil && models.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(models.Content); i += 2 {
				cat, list := models.Content[i].Value, models.Content[i+1]
				if list.Kind != yaml.SequenceNode {
					continue
				}
				for itemIdx, item := range list.Content {
					if item.Kind != yaml.MappingNode {
						continue
					}
					ref := mappingValue(item, "ref")
					if ref == nil {
						continue
					}
					if !modelIDs[cat][ref.Value] {
						v.addf("workflows[%d].models.%s[%d] ref '%s' not found in models.%s",
							wfIdx, cat, itemIdx, ref.Value, cat)
					}
				}
			}
		}

		if nodes := mappingValue(wf, "custom_nodes"); nodes != nil && nodes.Kind == yaml.SequenceNode {
			for nodeIdx, node := range nodes.Content {
				if node.Kind != yaml.MappingNode {
					continue
				}
				ref := mappingValue(node, "ref")
				if ref == nil {
					continue
				}
				if !nodeIDs[ref.Value] {
					v.addf("workflows[%d].custom_nodes[%d] ref '%s' not found in global custom_nodes",
						wfIdx, nodeIdx, ref.Value)
				}
			}
		}
	}
}

// globalModelIDs indexes, per category, the id values of the global model
// entries. Only entries carrying an id participate as reference targets.
func globalModelIDs(models *yaml.Node) map[string]map[string]bool {
	ids := make(map[string]map[string]bool)
	if models == nil || models.Kind != yaml.MappingNode {
		return ids
	}
	for i := 0; i+1 < len(models.Content); i += 2 {
		cat, list := models.Content[i].Value, models.Content[i+1]
		if cat == "dest_dir" || cat == "source_dir" {
			continue
		}
		ids[cat] = make(map[string]bool)
		if list.Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range list.Content {
			if item.Kind != yaml.MappingNode {
				continue
			}
			if id := mappingValue(item, "id"); id != nil {
				ids[cat][id.Value] = true
			}
		}
	}
	return ids
}

func globalNodeIDs(nodes *yaml.Node) map[string]bool {
	ids := make(map[string]bool)
	if nodes == nil || nodes.Kind != yaml.SequenceNode {
		return ids
	}
	for _, node := range nodes.Content {
		if node.Kind != yaml.MappingNode {
			continue
		}
		if id := mappingValue(node, "id"); id != nil {
			ids[id.Value] = true
		}
	}
	return ids
}

// Node helpers.

// mappingValue returns the value node for key in a mapping node, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func hasKey(node *yaml.Node, key string) bool {
	return mappingValue(node, key) != nil
}

func hasAnyKey(node *yaml.Node, keys ...string) bool {
	for _, key := range keys {
		if hasKey(node, key) {
			return true
		}
	}
	return false
}

// isAbsent treats a missing section and an explicit null the same way the
// original validator's `data.get(key, {}) or {}` idiom did.
func isAbsent(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

// isEmptyCollection mirrors the truthiness guard on sections checked with
// `if value and not isinstance(...)`: an empty list or mapping is skipped.
func isEmptyCollection(node *yaml.Node) bool {
	return (node.Kind == yaml.SequenceNode || node.Kind == yaml.MappingNode) &&
		len(node.Content) == 0
}

func isString(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!str"
}

func isBool(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!bool"
}
