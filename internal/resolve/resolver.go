package resolve

import (
	"fmt"

	"github.com/comfy-labs/comfyctl/internal/manifest"
)

// Result is the flattened output of a resolution run. Models maps each
// category to its ordered locators: every global entry first, then every
// overlay entry from the selected workflow, references expanded. Categories
// preserves emission order (global document order, then categories the
// workflow introduces). Categories whose entries yield no locator are
// omitted entirely.
//
// Duplicates are retained on purpose: a workflow ref resolving to the same
// locator as its global entry appears twice, and the download step is
// idempotent per filename.
type Result struct {
	Categories []string
	Models     map[string][]string
	NodeURLs   []string
	Warnings   []string
}

// Resolve flattens the manifest, overlaying the named workflow if one is
// given. It is a pure function of its inputs and never fails: missing
// workflows and broken refs degrade to warnings.
func Resolve(m *manifest.Manifest, workflowName string) *Result {
	r := &Result{Models: make(map[string][]string)}

	var wf *manifest.Workflow
	if workflowName != "" {
		wf = m.Workflow(workflowName)
		if wf == nil {
			r.warnf("workflow '%s' not found in config", workflowName)
		}
	}

	for _, cat := range categoryOrder(m, wf) {
		var locators []string
		locators = r.appendEntries(locators, cat, m.Models.Entries(cat), m)
		if wf != nil {
			locators = r.appendEntries(locators, cat, wf.Models.Entries(cat), m)
		}
		if len(locators) > 0 {
			r.Categories = append(r.Categories, cat)
			r.Models[cat] = locators
		}
	}

	r.resolveNodes(m, wf)
	return r
}

// appendEntries appends each entry's locator, expanding refs against the
// global pool for the same category. First matching id wins. A ref that
// resolves to nothing contributes nothing and is reported as a warning.
func (r *Result) appendEntries(locators []string, cat string, entries []manifest.ModelEntry, m *manifest.Manifest) []string {
	for _, e := range entries {
		if e.IsRef() {
			target, ok := lookupModel(m.Models.Entries(cat), e.Ref)
			if !ok {
				r.warnf("ref '%s' not found in models.%s", e.Ref, cat)
				continue
			}
			if loc := target.Locator(); loc != "" {
				locators = append(locators, loc)
			}
			continue
		}
		if loc := e.Locator(); loc != "" {
			locators = append(locators, loc)
		}
	}
	return locators
}

func (r *Result) resolveNodes(m *manifest.Manifest, wf *manifest.Workflow) {
	for _, n := range m.CustomNodes {
		if n.URL != "" {
			r.NodeURLs = append(r.NodeURLs, n.URL)
		}
	}
	if wf == nil {
		return
	}
	for _, n := range wf.CustomNodes {
		switch {
		case n.URL != "":
			r.NodeURLs = append(r.NodeURLs, n.URL)
		case n.Ref != "":
			target, ok := lookupNode(m.CustomNodes, n.Ref)
			if !ok {
				r.warnf("ref '%s' not found in global custom_nodes", n.Ref)
				continue
			}
			if target.URL != "" {
				r.NodeURLs = append(r.NodeURLs, target.URL)
			}
		}
	}
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// categoryOrder unions the global category order with any categories the
// workflow overlay introduces, preserving declaration order.
func categoryOrder(m *manifest.Manifest, wf *manifest.Workflow) []string {
	order := append([]string(nil), m.Models.Order...)
	if wf == nil {
		return order
	}
	seen := make(map[string]bool, len(order))
	for _, cat := range order {
		seen[cat] = true
	}
	for _, cat := range wf.Models.Order {
		if !seen[cat] {
			seen[cat] = true
			order = append(order, cat)
		}
	}
	return order
}

// lookupModel finds the first global entry in a category whose id equals
// ref. Only mapping entries carry ids; bare locators never match.
func lookupModel(entries []manifest.ModelEntry, ref string) (manifest.ModelEntry, bool) {
	for _, e := range entries {
		if e.Bare == "" && e.ID != "" && e.ID == ref {
			return e, true
		}
	}
	return manifest.ModelEntry{}, false
}

func lookupNode(nodes []manifest.NodeEntry, ref string) (manifest.NodeEntry, bool) {
	for _, n := range nodes {
		if n.ID != "" && n.ID == ref {
			return n, true
		}
	}
	return manifest.NodeEntry{}, false
}
