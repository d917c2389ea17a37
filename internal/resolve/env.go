package resolve

import (
	"strings"

	"github.com/comfy-labs/comfyctl/internal/manifest"
)

// EnvVar is one KEY=value assignment of the shell installer contract.
type EnvVar struct {
	Key   string
	Value string
}

// EnvVars renders a resolution as the environment-style contract the shell
// installer consumes: CIVITAI_<CATEGORY> holds comma-joined locators,
// YAML_CUSTOM_NODE_URLS holds space-joined repository URLs, and the
// install/models path options ride along. Only non-empty values are
// emitted.
func EnvVars(m *manifest.Manifest, r *Result) []EnvVar {
	var vars []EnvVar
	add := func(key, value string) {
		if value != "" {
			vars = append(vars, EnvVar{Key: key, Value: value})
		}
	}

	if m.Install != nil {
		add("COMFY_DIR", m.Install.ComfyDir)
		add("CPU_ONLY", boolFlag(m.Install.CPUOnly))
	} else {
		// cpu_only defaults to true when the install section is absent.
		add("CPU_ONLY", "1")
	}
	add("MODEL_DEST_DIR", m.Models.DestDir)
	add("MODELS_SOURCE_DIR", m.Models.SourceDir)

	for _, cat := range r.Categories {
		add("CIVITAI_"+strings.ToUpper(cat), strings.Join(r.Models[cat], ","))
	}
	add("YAML_CUSTOM_NODE_URLS", strings.Join(r.NodeURLs, " "))

	return vars
}

// String renders the assignment with shell-safe quoting of the value.
func (v EnvVar) String() string {
	return v.Key + "=" + shellQuote(v.Value)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// shellQuote single-quotes a value when it contains characters the shell
// would interpret, matching shlex.quote semantics closely enough for the
// locator and path strings that appear in manifests.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$`&;|<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
