package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
)

var validateFix bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate repository structure and governance conventions",
	Long: `Validate the repository: required files (go.mod, README.md, LICENSE,
CONTRIBUTING.md), docs/, CI workflows, scripts/, plan consistency, the
project manifest, and AI-guideline heuristics.

Errors are blocking; warnings are advisory. With --fix, safe repairs are
applied first and the repository is re-validated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if RepoCheck == nil {
			return fmt.Errorf("repo checker not initialized")
		}
		errs, warns, fixes, err := RepoCheck.Validate(validateFix)
		if err != nil {
			return err
		}
		if len(fixes) > 0 {
			fmt.Println("Applied fixes:")
			for _, f := range fixes {
				fmt.Printf(" - %s\n", f)
			}
		}
		fmt.Printf("Validation summary: %d errors, %d warnings\n", len(errs), len(warns))
		if len(errs) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range errs {
				fmt.Printf(" - %s\n", e)
			}
		}
		if len(warns) > 0 {
			fmt.Println("\nWarnings:")
			for _, w := range warns {
				fmt.Printf(" - %s\n", w)
			}
		}
		if len(errs) > 0 {
			return &core.UserError{
				Msg:  "repository validation failed",
				Hint: "Run 'repokit validate --fix' to apply safe auto-fixes.",
			}
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "apply auto-fixes and re-validate")
	rootCmd.AddCommand(validateCmd)
}
