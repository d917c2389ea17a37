package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_EmptyDocument(t *testing.T) {
	for _, src := range []string{"", "\n", "# comment only\n", "null\n"} {
		doc, err := Parse([]byte(src))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", src, err)
		}
		if doc.Manifest == nil {
			t.Fatalf("Parse(%q) returned nil manifest", src)
		}
		if len(doc.Manifest.Models.Order) != 0 {
			t.Errorf("Parse(%q) produced non-empty models", src)
		}
	}
}

func TestParse_NonMappingRoot(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"list root", "- a\n- b\n"},
		{"scalar root", "just a string\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if !errors.Is(err, ErrNotMapping) {
				t.Errorf("Parse(%q) error = %v, want ErrNotMapping", tt.src, err)
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("models: [unclosed\n"))
	if err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
	if errors.Is(err, ErrNotMapping) {
		t.Error("malformed YAML should not report ErrNotMapping")
	}
}

func TestParse_TypedView(t *testing.T) {
	src := `
install:
  comfy_dir: /opt/ComfyUI
  cpu_only: false
models:
  dest_dir: /data/models
  checkpoints:
    - urn:air:sdxl:checkpoint:civitai:443821@1928679
    - id: base
      url: https://example.com/base.safetensors
  loras:
    - id: detail
      urn: urn:air:sdxl:lora:civitai:122359
custom_nodes:
  - id: manager
    url: https://github.com/ltdrdata/ComfyUI-Manager
workflows:
  - name: portrait
    models:
      loras:
        - ref: detail
`
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m := doc.Manifest

	if m.Install == nil || m.Install.ComfyDir != "/opt/ComfyUI" {
		t.Errorf("Install = %+v, want comfy_dir /opt/ComfyUI", m.Install)
	}
	if m.Install.CPUOnly {
		t.Error("cpu_only: false should decode to CPUOnly=false")
	}
	if m.Models.DestDir != "/data/models" {
		t.Errorf("DestDir = %q", m.Models.DestDir)
	}
	if want := []string{"checkpoints", "loras"}; !equalStrings(m.Models.Order, want) {
		t.Errorf("Order = %v, want %v", m.Models.Order, want)
	}

	cps := m.Models.Entries("checkpoints")
	if len(cps) != 2 {
		t.Fatalf("checkpoints = %d entries, want 2", len(cps))
	}
	if cps[0].Bare != "urn:air:sdxl:checkpoint:civitai:443821@1928679" {
		t.Errorf("bare entry = %q", cps[0].Bare)
	}
	if cps[1].ID != "base" || cps[1].URL != "https://example.com/base.safetensors" {
		t.Errorf("mapping entry = %+v", cps[1])
	}

	if len(m.CustomNodes) != 1 || m.CustomNodes[0].ID != "manager" {
		t.Errorf("CustomNodes = %+v", m.CustomNodes)
	}

	wf := m.Workflow("portrait")
	if wf == nil {
		t.Fatal("workflow 'portrait' not found")
	}
	lr := wf.Models.Entries("loras")
	if len(lr) != 1 || !lr[0].IsRef() || lr[0].Ref != "detail" {
		t.Errorf("workflow loras = %+v", lr)
	}
	if m.Workflow("missing") != nil {
		t.Error("unknown workflow name should return nil")
	}
}

func TestParse_CPUOnlyDefault(t *testing.T) {
	doc, err := Parse([]byte("install:\n  comfy_dir: /srv/comfy\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Manifest.Install == nil || !doc.Manifest.Install.CPUOnly {
		t.Error("cpu_only should default to true when unset")
	}
}

func TestParse_TolerantShapes(t *testing.T) {
	// Wrong-shaped sections decode to their zero value instead of failing.
	src := `
models:
  checkpoints: not-a-list
custom_nodes: 42
workflows:
  - plain string instead of mapping
`
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m := doc.Manifest
	if len(m.Models.Order) != 0 {
		t.Errorf("wrong-shaped category should be skipped, got %v", m.Models.Order)
	}
	if len(m.CustomNodes) != 0 {
		t.Errorf("scalar custom_nodes should decode empty, got %+v", m.CustomNodes)
	}
	if len(m.Workflows) != 1 || m.Workflows[0].Name != "" {
		t.Errorf("scalar workflow should decode to zero workflow, got %+v", m.Workflows)
	}
}

func TestLocator(t *testing.T) {
	tests := []struct {
		name  string
		entry ModelEntry
		want  string
	}{
		{"bare", ModelEntry{Bare: "https://example.com/a.bin"}, "https://example.com/a.bin"},
		{"urn wins", ModelEntry{URN: "urn:air:sdxl:lora:civitai:1", URL: "https://x", ID: "i"}, "urn:air:sdxl:lora:civitai:1"},
		{"url over id", ModelEntry{URL: "https://x", ID: "i"}, "https://x"},
		{"id fallback", ModelEntry{ID: "122359"}, "122359"},
		{"ref yields nothing", ModelEntry{Ref: "base"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Locator(); got != tt.want {
				t.Errorf("Locator() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yml")
	os.WriteFile(path, []byte("models:\n  checkpoints: []\n"), 0644)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Manifest == nil {
		t.Fatal("Load returned nil manifest")
	}

	_, err = Load(filepath.Join(tmp, "nope.yml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "nope.yml") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
