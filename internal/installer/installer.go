package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/comfy-labs/comfyctl/internal/civitai"
	"github.com/comfy-labs/comfyctl/internal/config"
	"github.com/comfy-labs/comfyctl/internal/download"
	"github.com/comfy-labs/comfyctl/internal/manifest"
	"github.com/comfy-labs/comfyctl/internal/resolve"
)

// DefaultComfyDir is the installation root used when the manifest does not
// set install.comfy_dir.
const DefaultComfyDir = "/workspace/ComfyUI"

// Installer applies a resolution to the filesystem.
type Installer struct {
	settings *config.Settings
	out      io.Writer
}

// Options narrow an install run.
type Options struct {
	SkipModels bool
	SkipNodes  bool
	Threads    int // overrides settings when > 0
}

// New creates an Installer writing progress to out.
func New(settings *config.Settings, out io.Writer) *Installer {
	return &Installer{settings: settings, out: out}
}

// Run downloads every resolved model artifact and clones every custom-node
// repository. Individual artifact failures are reported and counted but do
// not abort the batch; a non-nil error means at least one step failed.
func (in *Installer) Run(ctx context.Context, m *manifest.Manifest, res *resolve.Result, opts Options) error {
	comfyDir := ComfyDir(m)
	failed := 0

	if !opts.SkipModels {
		failed += in.fetchModels(ctx, m, res, comfyDir, opts)
	}
	if !opts.SkipNodes {
		failed += in.cloneNodes(ctx, res.NodeURLs, comfyDir)
	}

	if failed > 0 {
		return fmt.Errorf("%d install step(s) failed", failed)
	}
	return nil
}

func (in *Installer) fetchModels(ctx context.Context, m *manifest.Manifest, res *resolve.Result, comfyDir string, opts Options) int {
	jobs := ModelJobs(m, res, comfyDir)
	if len(jobs) == 0 {
		fmt.Fprintln(in.out, "[*] No models specified for download")
		return 0
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = in.settings.Threads
	}

	fmt.Fprintf(in.out, "[*] Starting download of %d model(s)...\n", len(jobs))
	fetcher := download.NewFetcher(
		civitai.New(in.settings.APIKey),
		download.WithWorkers(threads),
		download.WithOutput(in.out),
	)

	failed := 0
	for _, r := range fetcher.FetchAll(ctx, jobs) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(in.out, "[!] Error downloading %s: %v\n", r.Job.Locator, r.Err)
		}
	}
	if failed == 0 {
		fmt.Fprintln(in.out, "[✔] Model download process completed.")
	}
	return failed
}

// cloneNodes clones each repository URL into <comfyDir>/custom_nodes,
// skipping clones whose target directory already exists.
func (in *Installer) cloneNodes(ctx context.Context, urls []string, comfyDir string) int {
	if len(urls) == 0 {
		return 0
	}

	nodesDir := filepath.Join(comfyDir, "custom_nodes")
	if err := os.MkdirAll(nodesDir, 0755); err != nil {
		fmt.Fprintf(in.out, "[!] Error creating %s: %v\n", nodesDir, err)
		return 1
	}

	failed := 0
	for _, rawURL := range urls {
		cloneURL := strings.TrimPrefix(rawURL, "git+")
		dest := filepath.Join(nodesDir, repoName(cloneURL))

		if _, err := os.Stat(dest); err == nil {
			fmt.Fprintf(in.out, "[✓] %s already present, skipping\n", filepath.Base(dest))
			continue
		}

		fmt.Fprintf(in.out, "[*] Cloning %s\n", cloneURL)
		cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", cloneURL, dest)
		cmd.Stdout = in.out
		cmd.Stderr = in.out
		if err := cmd.Run(); err != nil {
			failed++
			fmt.Fprintf(in.out, "[!] Error cloning %s: %v\n", cloneURL, err)
		}
	}
	return failed
}

// Start launches the installed application from the manifest's comfy_dir
// using its virtualenv interpreter. It blocks until the process exits.
func (in *Installer) Start(ctx context.Context, m *manifest.Manifest) error {
	comfyDir := ComfyDir(m)
	python := filepath.Join(comfyDir, "venv", "bin", "python")
	mainPy := filepath.Join(comfyDir, "main.py")

	args := []string{mainPy, "--listen", "--port", "8188"}
	if m.Install != nil && m.Install.CPUOnly {
		args = append(args, "--cpu")
	}

	cmd := exec.CommandContext(ctx, python, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("starting ComfyUI from %s: %w", comfyDir, err)
	}
	return nil
}

// ComfyDir returns the manifest's install root, or the default.
func ComfyDir(m *manifest.Manifest) string {
	if m.Install != nil && m.Install.ComfyDir != "" {
		return m.Install.ComfyDir
	}
	return DefaultComfyDir
}

// ModelJobs builds the (locator, destination-directory) pairs for a
// resolution: one job per locator, landing in <dest_dir>/<category> where
// dest_dir is the manifest's models.dest_dir or <comfyDir>/models.
func ModelJobs(m *manifest.Manifest, res *resolve.Result, comfyDir string) []download.Job {
	destRoot := m.Models.DestDir
	if destRoot == "" {
		destRoot = filepath.Join(comfyDir, "models")
	}

	var jobs []download.Job
	for _, cat := range res.Categories {
		destDir := filepath.Join(destRoot, cat)
		for _, locator := range res.Models[cat] {
			jobs = append(jobs, download.Job{Locator: locator, DestDir: destDir})
		}
	}
	return jobs
}

// repoName derives the clone directory name from a git URL.
func repoName(cloneURL string) string {
	name := path.Base(cloneURL)
	name = strings.TrimSuffix(name, ".git")
	if name == "" || name == "." || name == "/" {
		return "node"
	}
	return name
}
