package cli

import (
	"fmt"

	"github.com/comfy-labs/comfyctl/internal/config"
	"github.com/comfy-labs/comfyctl/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	validateConfigFile string
	validateSchema     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a manifest file",
	Long: `Check a manifest for structural correctness and referential integrity.
All violations are collected and reported together.

Exit codes: 0 valid, 1 validation errors, 2 fatal (file unreadable or not
parsable as a mapping).`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigFile, "config", config.DefaultManifest, "Path to the manifest file")
	validateCmd.Flags().BoolVar(&validateSchema, "schema", false, "Also run the JSON Schema structural check")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	doc, err := manifest.Load(validateConfigFile)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[!] %v\n", err)
		return &ExitError{Code: 2}
	}

	violations := manifest.Validate(doc)

	var schemaIssues []manifest.SchemaIssue
	if validateSchema {
		result, err := manifest.CheckSchema(doc.Source)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[!] schema check: %v\n", err)
			return &ExitError{Code: 2}
		}
		schemaIssues = result.Issues
	}

	if len(violations) == 0 && len(schemaIssues) == 0 {
		fmt.Fprintf(out, "[✓] %s passed validation\n", validateConfigFile)
		return nil
	}

	fmt.Fprintln(out, "[!] Configuration validation failed:")
	for _, v := range violations {
		fmt.Fprintf(out, "  - %s\n", v)
	}
	for _, issue := range schemaIssues {
		if issue.Path != "" {
			fmt.Fprintf(out, "  - schema %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(out, "  - schema: %s\n", issue.Message)
		}
	}
	return &ExitError{Code: 1}
}
