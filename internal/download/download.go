package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/comfy-labs/comfyctl/internal/air"
	"github.com/comfy-labs/comfyctl/internal/civitai"
)

// DefaultWorkers is the download concurrency used when none is configured.
const DefaultWorkers = 3

// Job is one artifact to fetch: a locator (direct URL or AIR URN) and the
// directory it should land in.
type Job struct {
	Locator string
	DestDir string
}

// Result reports the outcome of one job.
type Result struct {
	Job     Job
	Files   []string // paths written or found already present
	Skipped int      // files skipped because they already existed
	Err     error
}

// Fetcher downloads jobs through a fixed-size worker pool.
type Fetcher struct {
	civitai    *civitai.Client
	httpClient *http.Client
	workers    int
	out        io.Writer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithWorkers sets the pool size (minimum 1).
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithHTTPClient sets the client used for file streaming.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithOutput directs progress messages to w.
func WithOutput(w io.Writer) Option {
	return func(f *Fetcher) { f.out = w }
}

// NewFetcher creates a Fetcher resolving URN locators through civ.
func NewFetcher(civ *civitai.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		civitai:    civ,
		httpClient: http.DefaultClient,
		workers:    DefaultWorkers,
		out:        io.Discard,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll runs every job through the pool and returns one result per job,
// in job order. Individual failures do not stop the rest of the batch;
// callers inspect Result.Err. Cancellation of ctx aborts in-flight
// downloads.
func (f *Fetcher) FetchAll(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]Result, len(jobs))
	indexes := make(chan int)

	workers := f.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = f.fetchOne(ctx, jobs[i])
			}
		}()
	}

	for i := range jobs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = Result{Job: jobs[j], Err: ctx.Err()}
			}
			close(indexes)
			wg.Wait()
			return results
		}
	}
	close(indexes)
	wg.Wait()
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, job Job) Result {
	res := Result{Job: job}

	if air.IsDirectURL(job.Locator) {
		name := filenameFromURL(job.Locator)
		dest := filepath.Join(job.DestDir, name)
		written, skipped, err := f.fetchFile(ctx, job.Locator, dest, "")
		res.Err = err
		if skipped {
			res.Skipped++
		}
		if written != "" {
			res.Files = append(res.Files, written)
		}
		return res
	}

	// Platform model spec: resolve id/version through the API and fetch
	// every file of the chosen version.
	modelID, versionID := air.SplitSpec(job.Locator)
	info, err := f.civitai.GetModel(ctx, modelID)
	if err != nil {
		res.Err = err
		return res
	}

	version, found := civitai.SelectVersion(info, versionID)
	if version == nil {
		res.Err = fmt.Errorf("model %s: no versions published", modelID)
		return res
	}
	if !found && versionID != "" {
		fmt.Fprintf(f.out, "[!] version %s not found for model %s; falling back to latest\n", versionID, modelID)
	}

	for _, file := range version.Files {
		if file.DownloadURL == "" || file.Name == "" {
			continue
		}
		dest := filepath.Join(job.DestDir, file.Name)
		written, skipped, err := f.fetchFile(ctx, file.DownloadURL, dest, f.civitai.AuthHeader())
		if err != nil {
			res.Err = err
			continue
		}
		if skipped {
			res.Skipped++
		}
		if written != "" {
			res.Files = append(res.Files, written)
		}
	}
	return res
}

// fetchFile streams url to dest unless dest already exists. It returns the
// final path when the file is present afterwards, and whether it was
// skipped.
func (f *Fetcher) fetchFile(ctx context.Context, rawURL, dest, authHeader string) (string, bool, error) {
	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(f.out, "[✓] %s already exists, skipping\n", filepath.Base(dest))
		return dest, true, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", false, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", "comfyctl")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("downloading %s: %w", filepath.Base(dest), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("downloading %s: status %d", filepath.Base(dest), resp.StatusCode)
	}

	partial := dest + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return "", false, fmt.Errorf("creating %s: %w", partial, err)
	}

	fmt.Fprintf(f.out, "[*] Downloading %s\n", filepath.Base(dest))
	if err := f.copyWithProgress(out, resp.Body, resp.ContentLength, filepath.Base(dest)); err != nil {
		out.Close()
		os.Remove(partial)
		return "", false, fmt.Errorf("writing %s: %w", filepath.Base(dest), err)
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return "", false, fmt.Errorf("closing %s: %w", partial, err)
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return "", false, fmt.Errorf("placing %s: %w", dest, err)
	}
	fmt.Fprintf(f.out, "[✓] Saved to %s\n", dest)
	return dest, false, nil
}

// copyWithProgress copies src to dst, printing coarse percent progress
// when the total size is known.
func (f *Fetcher) copyWithProgress(dst io.Writer, src io.Reader, total int64, name string) error {
	var copied int64
	lastPercent := -1

	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			copied += int64(n)
			if total > 0 {
				percent := int(copied * 100 / total)
				if percent != lastPercent && percent%10 == 0 {
					fmt.Fprintf(f.out, "\r    %s %d%%", name, percent)
					lastPercent = percent
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}
	if total > 0 {
		fmt.Fprintln(f.out)
	}
	return nil
}

func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "model"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "model"
	}
	return name
}
