package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
)

var (
	genTemplate    string
	genOutDir      string
	genApply       bool
	genForce       bool
	genProjectName string
	genVars        []string
)

var generateCmd = &cobra.Command{
	Use:   "generate <category>",
	Short: "Generate files from a template category",
	Long: `Expand a template category into files and render them into an output
directory.

Categories come from templates/<name>.toml when present, otherwise from the
built-in set (basis, docs, ci, tests, examples, scripts, plan, or all).
Paths and contents are rendered with text/template; values are supplied
with --project-name and repeated --var key=value flags. Without --apply the
matched files are only listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Gen == nil {
			return fmt.Errorf("generator not initialized")
		}
		category := args[0]

		paths, err := Gen.Expand(genTemplate, category)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Printf("Category %q matched no files\n", category)
			return nil
		}

		fmt.Printf("Category %q matched %d files:\n", category, len(paths))
		for _, p := range paths {
			fmt.Printf(" - %s\n", p)
		}
		if !genApply {
			return nil
		}

		vars := map[string]string{}
		if genProjectName != "" {
			vars["project_name"] = genProjectName
		}
		for _, kv := range genVars {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return &core.UserError{Msg: fmt.Sprintf("invalid key=value: %q", kv)}
			}
			vars[k] = v
		}

		written, err := Gen.Render(paths, genOutDir, vars, genForce)
		if err != nil {
			return fmt.Errorf("rendering template: %w", err)
		}
		fmt.Printf("Wrote %d files to %s\n", len(written), genOutDir)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genTemplate, "template", "default", "template manifest name under templates/")
	generateCmd.Flags().StringVar(&genOutDir, "out-dir", ".", "destination directory")
	generateCmd.Flags().BoolVar(&genApply, "apply", false, "write files (default is a dry run)")
	generateCmd.Flags().BoolVar(&genForce, "force", false, "overwrite existing files")
	generateCmd.Flags().StringVar(&genProjectName, "project-name", "", "project name template variable")
	generateCmd.Flags().StringArrayVar(&genVars, "var", nil, "additional template variable, key=value (repeatable)")
	rootCmd.AddCommand(generateCmd)
}
