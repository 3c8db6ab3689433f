package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
)

var planHooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage transition hook scripts",
	Long: `Manage the hook scripts under scripts/plan-hooks/.

A hook for <name> is either a single executable file scripts/plan-hooks/<name>
or a directory scripts/plan-hooks/<name>/ whose entries run in lexicographic
order. Hooks receive a JSON context on stdin and PLAN_* environment
variables; a nonzero exit from a pre-hook blocks the transition.`,
}

// hookTemplate is the starter script written by 'hooks add'. It exits zero
// so a fresh hook never blocks transitions until edited.
const hookTemplate = `#!/bin/sh
# Plan transition hook.
#
# Receives a JSON context on stdin:
#   {"task_id": "...", "repo_root": "...", "current_status": "...",
#    "new_status": "...", "task_file": "...", "ai_validation_path": "..."}
# The same values are exported as PLAN_TASK_ID, PLAN_REPO_ROOT,
# PLAN_CURRENT_STATUS, PLAN_NEW_STATUS, PLAN_TASK_FILE, and
# PLAN_AI_VALIDATION_PATH (when advisory validation ran).
#
# Exit nonzero to block the transition (pre-hooks only).

exit 0
`

var planHooksAddCmd = &cobra.Command{
	Use:               "add <name>",
	Short:             "Create a hook script from a starter template",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeHookNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir := filepath.Join(RepoRoot, HooksDir)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating hooks dir: %w", err)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return &core.UserError{
				Msg:  fmt.Sprintf("hook %q already exists at %s", name, path),
				Hint: "Edit the existing script, or convert it to a directory to chain multiple scripts.",
			}
		}
		if err := os.WriteFile(path, []byte(hookTemplate), 0o755); err != nil {
			return fmt.Errorf("writing hook %s: %w", path, err)
		}
		fmt.Printf("Created hook %s -> %s\n", name, path)
		return nil
	},
}

var planHooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if HookRunner == nil {
			return fmt.Errorf("hook runner not initialized")
		}
		names, err := HookRunner.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Printf("No hooks found under %s\n", HooksDir)
			return nil
		}
		fmt.Println("Hooks:")
		for _, n := range names {
			fmt.Printf(" - %s\n", n)
		}
		return nil
	},
}

var planHooksCheckCmd = &cobra.Command{
	Use:               "check [name]",
	Short:             "Check hook scripts for common problems",
	Long:              "Check that hook scripts exist, are executable, and start with a shebang line.",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeHookNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		if HookRunner == nil {
			return fmt.Errorf("hook runner not initialized")
		}
		var names []string
		if len(args) == 1 {
			names = args
		} else {
			all, err := HookRunner.List()
			if err != nil {
				return err
			}
			names = all
		}
		if len(names) == 0 {
			fmt.Println("No hooks to check")
			return nil
		}

		failed := false
		for _, name := range names {
			results, err := HookRunner.Check(name)
			if err != nil {
				return &core.UserError{Msg: err.Error()}
			}
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "FAIL: %s: %s\n", r.Path, r.Err)
					failed = true
				} else {
					fmt.Printf("OK: %s\n", r.Path)
				}
			}
		}
		if failed {
			return &core.UserError{Msg: "hook check failed"}
		}
		return nil
	},
}

func init() {
	planHooksCmd.AddCommand(planHooksAddCmd, planHooksListCmd, planHooksCheckCmd)
	planCmd.AddCommand(planHooksCmd)
}
