package cli

import (
	"encoding/json"
	"fmt"

	"github.com/comfy-labs/comfyctl/internal/config"
	"github.com/comfy-labs/comfyctl/internal/manifest"
	"github.com/comfy-labs/comfyctl/internal/resolve"
	"github.com/spf13/cobra"
)

var (
	resolveConfigFile string
	resolveWorkflow   string
	resolveJSON       bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the flattened artifact list for a manifest",
	Long: `Flatten the manifest's model pools and custom-node list, expanding
workflow references, and print the result as environment-style assignments
for the shell installer (or JSON with --json). Resolution warnings go to
stderr and do not fail the command; run validate first to catch hard errors.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveConfigFile, "config", config.DefaultManifest, "Path to the manifest file")
	resolveCmd.Flags().StringVar(&resolveWorkflow, "workflow", "", "Overlay the named workflow")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the resolution as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	doc, err := manifest.Load(resolveConfigFile)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[!] %v\n", err)
		return &ExitError{Code: 2}
	}

	res := resolve.Resolve(doc.Manifest, resolveWorkflow)
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "[!] warning: %s\n", w)
	}

	if resolveJSON {
		payload := struct {
			Models         map[string][]string `json:"models"`
			CustomNodeURLs []string            `json:"custom_node_urls"`
			Warnings       []string            `json:"warnings,omitempty"`
		}{res.Models, res.NodeURLs, res.Warnings}

		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling resolution: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	for _, v := range resolve.EnvVars(doc.Manifest, res) {
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	}
	return nil
}
