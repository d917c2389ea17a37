// Package air parses AIR model identifiers of the form
// urn:air:<model-type>:<category>:<platform>:<id>[@<version>], the locator
// grammar used by Civitai-hosted model assets.
package air

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURN indicates a string that is not a well-formed AIR URN.
var ErrInvalidURN = errors.New("air: invalid URN")

const prefix = "urn:air:"

// URN is a parsed AIR identifier.
type URN struct {
	ModelType string // e.g. "sdxl"
	Category  string // e.g. "checkpoint"
	Platform  string // e.g. "civitai"
	ModelID   string
	VersionID string // empty when no @version suffix is present
}

// IsURN reports whether s carries the AIR URN prefix.
func IsURN(s string) bool {
	return strings.HasPrefix(s, prefix)
}

// IsDirectURL reports whether s is a direct http(s) URL.
func IsDirectURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Parse parses an AIR URN. The identifier must have exactly six
// colon-separated segments with the literal "air" namespace; the final
// segment is the model id with an optional @version suffix.
func Parse(s string) (URN, error) {
	if !IsURN(s) {
		return URN{}, fmt.Errorf("%w: %q missing %q prefix", ErrInvalidURN, s, prefix)
	}
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return URN{}, fmt.Errorf("%w: %q has %d segments, want 6", ErrInvalidURN, s, len(parts))
	}

	u := URN{
		ModelType: parts[2],
		Category:  parts[3],
		Platform:  parts[4],
	}
	id := parts[5]
	if at := strings.IndexByte(id, '@'); at >= 0 {
		u.ModelID, u.VersionID = id[:at], id[at+1:]
	} else {
		u.ModelID = id
	}
	if strings.TrimSpace(u.ModelID) == "" {
		return URN{}, fmt.Errorf("%w: %q has empty model id", ErrInvalidURN, s)
	}
	return u, nil
}

// DirName returns the destination subdirectory for the URN's category,
// pluralized ("checkpoint" → "checkpoints").
func (u URN) DirName() string {
	if strings.HasSuffix(u.Category, "s") {
		return u.Category
	}
	return u.Category + "s"
}

// String reassembles the canonical URN form.
func (u URN) String() string {
	s := strings.Join([]string{"urn", "air", u.ModelType, u.Category, u.Platform, u.ModelID}, ":")
	if u.VersionID != "" {
		s += "@" + u.VersionID
	}
	return s
}

// SplitSpec extracts (modelID, versionID) from any of the accepted model
// spec forms: a bare id "1234", "1234:9876", or an AIR URN with the
// version after "@". Non-URN specs fall back to the legacy id[:version]
// split.
func SplitSpec(spec string) (modelID, versionID string) {
	spec = strings.TrimSpace(spec)
	if IsURN(spec) {
		if u, err := Parse(spec); err == nil {
			return u.ModelID, u.VersionID
		}
		// Malformed URN: find the segment after the platform token, the
		// lenient path the legacy downloader took.
		parts := strings.Split(spec, ":")
		for i, p := range parts {
			if p == "civitai" && i+1 < len(parts) {
				id := parts[i+1]
				if at := strings.IndexByte(id, '@'); at >= 0 {
					return id[:at], id[at+1:]
				}
				return id, ""
			}
		}
		return spec, ""
	}
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}
