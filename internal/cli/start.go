package cli

import (
	"fmt"

	"github.com/comfy-labs/comfyctl/internal/config"
	"github.com/comfy-labs/comfyctl/internal/installer"
	"github.com/comfy-labs/comfyctl/internal/manifest"
	"github.com/spf13/cobra"
)

var startConfigFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch ComfyUI using the configured comfy_dir",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startConfigFile, "config", config.DefaultManifest, "Path to the manifest file (to locate comfy_dir)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// A missing or broken manifest falls back to the default install
	// root; start should work on a machine that never ran validate.
	m := &manifest.Manifest{}
	if doc, err := manifest.Load(startConfigFile); err == nil {
		m = doc.Manifest
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "[*] %v; using default comfy_dir\n", err)
	}

	settings := config.Load()
	inst := installer.New(settings, cmd.OutOrStdout())
	return inst.Start(cmd.Context(), m)
}
