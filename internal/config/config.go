package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/comfy-labs/comfyctl/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"

	// DefaultManifest is the manifest filename looked up in the working
	// directory when --config is not given.
	DefaultManifest = "config.yml"

	// DefaultThreads is the download concurrency when nothing is set.
	DefaultThreads = 3
)

// Settings is the resolved runtime configuration, built once per
// invocation from the config file and the bound environment variables.
type Settings struct {
	APIKey    string
	Threads   int
	AutoStart bool
}

// Dir returns the path to the comfyctl config directory (~/.comfyctl/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.comfyctl/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment and
// returns the resolved settings.
//
// The legacy env var names are bound explicitly rather than through the
// COMFYCTL_ prefix so existing deployments keep working.
func Load() *Settings {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	_ = viper.BindEnv("civitai.api_key", "CIVITAI_API_KEY")
	_ = viper.BindEnv("civitai.download_threads", "CIVITAI_DOWNLOAD_THREADS")
	_ = viper.BindEnv("auto_start", "AUTO_START")
	viper.SetDefault("civitai.download_threads", DefaultThreads)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()

	threads := viper.GetInt("civitai.download_threads")
	if threads < 1 {
		threads = 1
	}
	return &Settings{
		APIKey:    viper.GetString("civitai.api_key"),
		Threads:   threads,
		AutoStart: viper.GetBool("auto_start"),
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
