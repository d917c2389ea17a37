package installer

import (
	"path/filepath"
	"testing"

	"github.com/comfy-labs/comfyctl/internal/manifest"
	"github.com/comfy-labs/comfyctl/internal/resolve"
)

func TestComfyDir(t *testing.T) {
	if got := ComfyDir(&manifest.Manifest{}); got != DefaultComfyDir {
		t.Errorf("ComfyDir = %q, want default %q", got, DefaultComfyDir)
	}
	m := &manifest.Manifest{Install: &manifest.InstallOptions{ComfyDir: "/opt/comfy"}}
	if got := ComfyDir(m); got != "/opt/comfy" {
		t.Errorf("ComfyDir = %q", got)
	}
}

func TestModelJobs(t *testing.T) {
	doc, err := manifest.Parse([]byte(`
models:
  checkpoints:
    - urn:air:sdxl:checkpoint:civitai:12345
  loras:
    - https://example.com/detail.safetensors
`))
	if err != nil {
		t.Fatal(err)
	}
	m := doc.Manifest
	res := resolve.Resolve(m, "")

	jobs := ModelJobs(m, res, "/workspace/ComfyUI")
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].DestDir != filepath.Join("/workspace/ComfyUI", "models", "checkpoints") {
		t.Errorf("jobs[0].DestDir = %q", jobs[0].DestDir)
	}
	if jobs[0].Locator != "urn:air:sdxl:checkpoint:civitai:12345" {
		t.Errorf("jobs[0].Locator = %q", jobs[0].Locator)
	}
	if jobs[1].DestDir != filepath.Join("/workspace/ComfyUI", "models", "loras") {
		t.Errorf("jobs[1].DestDir = %q", jobs[1].DestDir)
	}
}

func TestModelJobs_DestDirOverride(t *testing.T) {
	doc, err := manifest.Parse([]byte(`
models:
  dest_dir: /data/models
  checkpoints:
    - https://example.com/a.bin
`))
	if err != nil {
		t.Fatal(err)
	}
	m := doc.Manifest
	jobs := ModelJobs(m, resolve.Resolve(m, ""), "/workspace/ComfyUI")
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].DestDir != filepath.Join("/data/models", "checkpoints") {
		t.Errorf("DestDir = %q", jobs[0].DestDir)
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/ltdrdata/ComfyUI-Manager", "ComfyUI-Manager"},
		{"https://github.com/org/repo.git", "repo"},
	}
	for _, tt := range tests {
		if got := repoName(tt.url); got != tt.want {
			t.Errorf("repoName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
