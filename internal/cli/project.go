package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect and validate the project manifest (project.toml)",
}

var projectGhaOutputsCmd = &cobra.Command{
	Use:   "gha-outputs",
	Short: "Emit project.toml settings as GitHub Actions outputs",
	Long: `Flatten project.toml into key=value pairs for a CI workflow.

When $GITHUB_OUTPUT is set the pairs are appended to that file; otherwise
they are printed to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return core.EmitGHAOutputs(RepoRoot, os.Stdout)
	},
}

var projectValidateStrict bool

var projectValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate project.toml for schema, drift, and artifact consistency",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := core.ValidateProjectManifest(RepoRoot)
		if err != nil {
			return err
		}
		fmt.Printf("Project validation summary: %d errors, %d warnings\n",
			len(report.Errors), len(report.Warnings))
		if len(report.Errors) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range report.Errors {
				fmt.Printf(" - %s\n", e)
			}
		}
		if len(report.Warnings) > 0 {
			fmt.Println("\nWarnings:")
			for _, w := range report.Warnings {
				fmt.Printf(" - %s\n", w)
			}
		}
		if report.Blocking(projectValidateStrict) {
			return &core.UserError{Msg: "project manifest validation failed"}
		}
		return nil
	},
}

func init() {
	projectValidateCmd.Flags().BoolVar(&projectValidateStrict, "strict", false, "treat warnings as errors")
	projectCmd.AddCommand(projectGhaOutputsCmd, projectValidateCmd)
	rootCmd.AddCommand(projectCmd)
}
