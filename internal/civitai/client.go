// Package civitai is a minimal client for the Civitai model API, used to
// turn model ids from AIR URNs into concrete download URLs.
package civitai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://civitai.com"

// Sentinel errors for API lookups. Use errors.Is to check.
var (
	// ErrModelNotFound indicates the model id does not exist.
	ErrModelNotFound = errors.New("civitai: model not found")

	// ErrNoFiles indicates the chosen version carries no downloadable files.
	ErrNoFiles = errors.New("civitai: no files for model version")

	// ErrRateLimited indicates the API refused the request for quota reasons.
	ErrRateLimited = errors.New("civitai: rate limited")
)

// Client calls the Civitai REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New creates a Client. apiKey may be empty for anonymous access; Civitai
// then serves only public models.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelInfo is the subset of the model endpoint response the installer
// needs. The API returns versions newest-first.
type ModelInfo struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Versions []ModelVersion `json:"modelVersions"`
}

// ModelVersion is one published version of a model.
type ModelVersion struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Files []ModelFile `json:"files"`
}

// ModelFile is one downloadable artifact of a version.
type ModelFile struct {
	Name        string  `json:"name"`
	DownloadURL string  `json:"downloadUrl"`
	SizeKB      float64 `json:"sizeKB"`
}

// GetModel fetches metadata for a model id.
func (c *Client) GetModel(ctx context.Context, modelID string) (*ModelInfo, error) {
	url := fmt.Sprintf("%s/api/v1/models/%s", c.baseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching model %s: %w", modelID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("model %s: %w", modelID, ErrModelNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("model %s: %w", modelID, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("model %s: API returned status %d", modelID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var info ModelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parsing model JSON: %w", err)
	}
	return &info, nil
}

// SelectVersion picks the version with the given id, falling back to the
// newest version when versionID is empty or matches nothing. The fallback
// mirrors the legacy downloader: a missing version is a warning, not a
// failure. The second return reports whether the requested version was
// found (always true when versionID is empty).
func SelectVersion(info *ModelInfo, versionID string) (*ModelVersion, bool) {
	if len(info.Versions) == 0 {
		return nil, false
	}
	if versionID != "" {
		for i := range info.Versions {
			if fmt.Sprintf("%d", info.Versions[i].ID) == versionID {
				return &info.Versions[i], true
			}
		}
		return &info.Versions[0], false
	}
	return &info.Versions[0], true
}

// AuthHeader exposes the bearer header for download requests that go to
// the same platform.
func (c *Client) AuthHeader() string {
	if c.apiKey == "" {
		return ""
	}
	return "Bearer " + c.apiKey
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "comfyctl")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
