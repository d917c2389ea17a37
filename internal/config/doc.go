// Package config manages user-level settings stored at
// ~/.comfyctl/config.yaml and the environment contract carried over from
// the legacy installer (CIVITAI_API_KEY, CIVITAI_DOWNLOAD_THREADS,
// AUTO_START). Settings are read once into an explicit struct; nothing
// outside this package consults the process environment directly.
package config
