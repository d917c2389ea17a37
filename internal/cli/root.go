package cli

import (
	"fmt"
	"os"

	"github.com/comfy-labs/comfyctl/internal/branding"
	"github.com/comfy-labs/comfyctl/internal/config"
	"github.com/comfy-labs/comfyctl/internal/updater"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs and launches ComfyUI from a declarative YAML
manifest describing install options, model pools, custom-node repositories,
and named workflows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Skip the banner for commands whose output is machine-consumed.
		name := cmd.Name()
		if name == "version" || name == "resolve" {
			return
		}

		// Non-blocking banner from cached version check.
		u := updater.New(buildVersion)
		u.CheckAndPrintBanner(os.Stderr, config.Dir())
	},
}

// ExitError carries a specific process exit code through Cobra's error
// return. Commands that have already printed their diagnostics return it
// with Err nil.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
