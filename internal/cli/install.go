package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/comfy-labs/comfyctl/internal/config"
	"github.com/comfy-labs/comfyctl/internal/installer"
	"github.com/comfy-labs/comfyctl/internal/manifest"
	"github.com/comfy-labs/comfyctl/internal/resolve"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	installConfigFile string
	installEnvFile    string
	installWorkflow   string
	installThreads    int
	installSkipModels bool
	installSkipNodes  bool
	installYes        bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download models and custom nodes from a manifest",
	Long: `Validate the manifest, resolve it into a concrete artifact list
(optionally overlaying a named workflow), then download every model into
its category directory and clone every custom-node repository.

Downloads are idempotent: artifacts already on disk are skipped.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installConfigFile, "config", config.DefaultManifest, "Path to the manifest file")
	installCmd.Flags().StringVar(&installEnvFile, "env-file", "", "Load environment variables from this file first")
	installCmd.Flags().StringVar(&installWorkflow, "workflow", "", "Install dependencies for this workflow only")
	installCmd.Flags().IntVar(&installThreads, "threads", 0, "Concurrent downloads (default from CIVITAI_DOWNLOAD_THREADS)")
	installCmd.Flags().BoolVar(&installSkipModels, "skip-models", false, "Skip model downloads")
	installCmd.Flags().BoolVar(&installSkipNodes, "skip-nodes", false, "Skip custom-node clones")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// The env file must be loaded before settings are read, since the
	// settings bind CIVITAI_* variables.
	if installEnvFile != "" {
		if err := godotenv.Load(installEnvFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", installEnvFile, err)
		}
	}
	settings := config.Load()

	doc, err := manifest.Load(installConfigFile)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[!] %v\n", err)
		return &ExitError{Code: 2}
	}

	// Validation gates installation: a manifest with violations never
	// reaches the download step.
	if violations := manifest.Validate(doc); len(violations) > 0 {
		fmt.Fprintln(out, "[!] Configuration validation failed:")
		for _, v := range violations {
			fmt.Fprintf(out, "  - %s\n", v)
		}
		return &ExitError{Code: 1}
	}

	res := resolve.Resolve(doc.Manifest, installWorkflow)
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "[!] warning: %s\n", w)
	}

	comfyDir := installer.ComfyDir(doc.Manifest)
	jobs := installer.ModelJobs(doc.Manifest, res, comfyDir)

	fmt.Fprintf(out, "[*] %d model artifact(s), %d custom node(s), comfy_dir %s\n",
		len(jobs), len(res.NodeURLs), comfyDir)
	if len(jobs) == 0 && len(res.NodeURLs) == 0 {
		fmt.Fprintln(out, "Nothing to install.")
		return nil
	}

	if !installYes {
		fmt.Fprint(out, "? Proceed with installation? (Y/n) ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if answer != "" && answer != "y" && answer != "yes" {
				fmt.Fprintln(out, "Installation cancelled.")
				return nil
			}
		}
	}

	inst := installer.New(settings, out)
	opts := installer.Options{
		SkipModels: installSkipModels,
		SkipNodes:  installSkipNodes,
		Threads:    installThreads,
	}
	if err := inst.Run(cmd.Context(), doc.Manifest, res, opts); err != nil {
		return err
	}

	if settings.AutoStart {
		fmt.Fprintln(out, "[*] AUTO_START set, launching ComfyUI...")
		return inst.Start(cmd.Context(), doc.Manifest)
	}
	return nil
}
