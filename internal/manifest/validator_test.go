package manifest

import (
	"strings"
	"testing"
)

func validate(t *testing.T, src string) []string {
	t.Helper()
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return Validate(doc)
}

func TestValidate_EmptyManifestIsValid(t *testing.T) {
	for _, src := range []string{"", "install: {}\nmodels: {}\ncustom_nodes: []\nworkflows: []\n"} {
		if got := validate(t, src); len(got) != 0 {
			t.Errorf("expected no violations for %q, got %v", src, got)
		}
	}
}

func TestValidate_UnknownTopLevelKey(t *testing.T) {
	got := validate(t, "modles:\n  checkpoints: []\n")
	want := []string{"Unknown top-level key: modles"}
	assertViolations(t, got, want)
}

func TestValidate_Install(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"not a mapping",
			"install: yes please\n",
			[]string{"install section must be a mapping"},
		},
		{
			"unknown key",
			"install:\n  gpu_only: true\n",
			[]string{"install: unknown key gpu_only"},
		},
		{
			"cpu_only not boolean",
			"install:\n  cpu_only: maybe\n",
			[]string{"install.cpu_only must be boolean"},
		},
		{
			"cpu_only boolean ok",
			"install:\n  cpu_only: false\n  comfy_dir: /opt\n",
			nil,
		},
		{
			"explicit null skipped",
			"install: null\n",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertViolations(t, validate(t, tt.src), tt.want)
		})
	}
}

func TestValidate_Models(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"section not a mapping",
			"models:\n  - a\n",
			[]string{"models section must be a mapping"},
		},
		{
			"category not a list",
			"models:\n  checkpoints: one\n",
			[]string{"models.checkpoints must be a list"},
		},
		{
			"mapping without locator",
			"models:\n  checkpoints:\n    - name: just a name\n",
			[]string{"models.checkpoints[0] must have 'urn', 'url', 'id', or 'ref' field"},
		},
		{
			"ref and direct content conflict",
			"models:\n  checkpoints:\n    - ref: base\n      urn: urn:air:sdxl:checkpoint:civitai:1\n",
			[]string{"models.checkpoints[0] cannot have both 'ref' and direct content fields"},
		},
		{
			"element wrong type",
			"models:\n  checkpoints:\n    - 12345\n",
			[]string{"models.checkpoints[0] must be str or mapping"},
		},
		{
			"dest_dir and source_dir skipped",
			"models:\n  dest_dir: /data/models\n  source_dir: /mnt/cache\n",
			nil,
		},
		{
			"bare string ok",
			"models:\n  checkpoints:\n    - urn:air:sdxl:checkpoint:civitai:443821@1928679\n",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertViolations(t, validate(t, tt.src), tt.want)
		})
	}
}

func TestValidate_RefConflictIsSingleViolation(t *testing.T) {
	// An entry with both ref and direct fields has a locator, so only the
	// conflict rule fires.
	src := "models:\n  loras:\n    - ref: detail\n      url: https://example.com/x\n"
	got := validate(t, src)
	if len(got) != 1 {
		t.Fatalf("want exactly 1 violation, got %d: %v", len(got), got)
	}
	if got[0] != "models.loras[0] cannot have both 'ref' and direct content fields" {
		t.Errorf("violation = %q", got[0])
	}
}

func TestValidate_CustomNodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"not a list",
			"custom_nodes:\n  url: https://example.com\n",
			[]string{"custom_nodes must be a list"},
		},
		{
			"element not a mapping",
			"custom_nodes:\n  - https://example.com/repo\n",
			[]string{"custom_nodes[0] must be mapping with 'url' or 'id'"},
		},
		{
			"missing url and id",
			"custom_nodes:\n  - name: nothing useful\n",
			[]string{"custom_nodes[0] missing 'url' or 'id' field"},
		},
		{
			"id only ok",
			"custom_nodes:\n  - id: manager\n",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertViolations(t, validate(t, tt.src), tt.want)
		})
	}
}

func TestValidate_Workflows(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"not a list",
			"workflows:\n  name: x\n",
			[]string{"workflows must be a list"},
		},
		{
			"element not a mapping",
			"workflows:\n  - portrait\n",
			[]string{"workflows[0] must be mapping"},
		},
		{
			"missing name",
			"workflows:\n  - description: no name here\n",
			[]string{"workflows[0] missing 'name' field"},
		},
		{
			"node ref and url conflict",
			"custom_nodes:\n  - id: manager\n    url: https://example.com\nworkflows:\n  - name: wf\n    custom_nodes:\n      - ref: manager\n        url: https://example.com\n",
			[]string{"workflows[0].custom_nodes[0] cannot have both 'ref' and 'url' fields"},
		},
		{
			"node missing url and ref",
			"workflows:\n  - name: wf\n    custom_nodes:\n      - name: bare\n",
			[]string{"workflows[0].custom_nodes[0] missing 'url' or 'ref' field"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertViolations(t, validate(t, tt.src), tt.want)
		})
	}
}

func TestValidate_References(t *testing.T) {
	src := `
models:
  checkpoints:
    - id: base
      urn: urn:air:sdxl:checkpoint:civitai:1
custom_nodes:
  - id: manager
    url: https://github.com/ltdrdata/ComfyUI-Manager
workflows:
  - name: wf
    models:
      checkpoints:
        - ref: base
        - ref: missing
      loras:
        - ref: base
    custom_nodes:
      - ref: manager
      - ref: n2
`
	got := validate(t, src)
	want := []string{
		"workflows[0].models.checkpoints[1] ref 'missing' not found in models.checkpoints",
		"workflows[0].models.loras[0] ref 'base' not found in models.loras",
		"workflows[0].custom_nodes[1] ref 'n2' not found in global custom_nodes",
	}
	assertViolations(t, got, want)
}

func TestValidate_AggregatesInDocumentOrder(t *testing.T) {
	src := `
extra: true
install:
  cpu_only: 3
models:
  checkpoints: nope
custom_nodes:
  - plain
`
	got := validate(t, src)
	want := []string{
		"Unknown top-level key: extra",
		"install.cpu_only must be boolean",
		"models.checkpoints must be a list",
		"custom_nodes[0] must be mapping with 'url' or 'id'",
	}
	assertViolations(t, got, want)
}

func TestValidate_Idempotent(t *testing.T) {
	src := "bogus: 1\nmodels:\n  checkpoints:\n    - 7\n"
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	first := Validate(doc)
	second := Validate(doc)
	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Errorf("repeated validation differs: %v vs %v", first, second)
	}
}

func assertViolations(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d violations %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("violation[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
