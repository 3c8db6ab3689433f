package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/pkg/models"
)

// planAIValidate is the persistent --ai-validate flag shared by all plan
// subcommands.
var planAIValidate bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage the task plan (create, list, transition, validate)",
	Long: `Manage the repository's plan of tasks.

Tasks live in plan/todo.toml and move through a guarded lifecycle:
pending_review -> queued -> working -> testing -> under_acceptance ->
finished, with reopen returning a finished task to pending_review.
Transitions run built-in checks and hooks from scripts/plan-hooks/.`,
}

var (
	planCreateKind     string
	planCreateTitle    string
	planCreateContent  string
	planCreateAssignee string
)

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new task in pending_review",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		if planCreateTitle == "" {
			return &core.UserError{Msg: "plan: --title is required"}
		}
		kindStr := planCreateKind
		if kindStr == "" {
			kindStr = DefaultKind
		}
		kind, err := models.ParseKind(kindStr)
		if err != nil {
			return &core.UserError{Msg: err.Error()}
		}

		task, err := Plan.CreateTask(kind, planCreateTitle, planCreateContent, planCreateAssignee)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		fmt.Printf("Created task %s\n", task.ID)
		return nil
	},
}

var (
	planUpdateTitle    string
	planUpdateAssignee string
	planUpdateContent  string
)

var planUpdateCmd = &cobra.Command{
	Use:               "update <task-id>",
	Short:             "Update a task's title, assignee, or content",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		update := core.TaskUpdate{
			Title:    planUpdateTitle,
			Assignee: planUpdateAssignee,
		}
		if cmd.Flags().Changed("content") {
			update.Content = &planUpdateContent
		}
		if err := Plan.UpdateTask(args[0], update); err != nil {
			return err
		}
		fmt.Printf("Updated task %s\n", args[0])
		return nil
	},
}

var planListStatus string

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plan tasks in manifest order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		var status models.TaskStatus
		if planListStatus != "" {
			st, err := models.ParseStatus(planListStatus)
			if err != nil {
				return &core.UserError{Msg: err.Error()}
			}
			status = st
		}
		tasks, err := Plan.ListTasks(status)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		fmt.Printf("Tasks (%d):\n", len(tasks))
		for _, t := range tasks {
			fmt.Printf(" - %s: %s [%s]\n", t.ID, t.Title, t.Status)
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:               "show <task-id>",
	Short:             "Show a task's fields, content, and history",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		task, err := Plan.GetTask(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Task %s\n", task.ID)
		fmt.Printf(" Kind: %s\n", task.Kind)
		fmt.Printf(" Title: %s\n", task.Title)
		fmt.Printf(" Status: %s\n", task.Status)
		fmt.Printf(" Assignee: %s\n", task.Assignee)
		fmt.Printf(" Task file: %s\n", task.TaskFile)

		if task.TaskFile != "" {
			data, err := os.ReadFile(filepath.Join(RepoRoot, PlanDir, task.TaskFile))
			if err == nil {
				fmt.Println("---")
				fmt.Println(string(data))
			}
		}

		entries, err := Plan.History(task.ID)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			fmt.Println("History:")
			for _, e := range entries {
				fmt.Println("---")
				fmt.Printf("time: %d\n", e.Time)
				if e.Author != "" {
					fmt.Printf("author: %s\n", e.Author)
				}
				fmt.Println(e.Message)
			}
		}
		return nil
	},
}

var (
	planLogMessage string
	planLogAuthor  string
)

var planLogCmd = &cobra.Command{
	Use:               "log <task-id>",
	Short:             "Append a history entry to a task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		if strings.TrimSpace(planLogMessage) == "" {
			return &core.UserError{Msg: "plan: --message is required"}
		}
		author := planLogAuthor
		if author == "" {
			author = DefaultAuthor
		}
		if err := Plan.Log(args[0], author, planLogMessage); err != nil {
			return err
		}
		fmt.Printf("Logged event for task %s\n", args[0])
		return nil
	},
}

var planDeleteYes bool

var planDeleteCmd = &cobra.Command{
	Use:               "delete <task-id>",
	Short:             "Delete a task and its files",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		id := args[0]
		if _, err := Plan.GetTask(id); err != nil {
			return err
		}
		if !planDeleteYes {
			fmt.Printf("Delete task %s (y/N)? ", id)
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted")
				return nil
			}
		}
		if err := Plan.DeleteTask(id); err != nil {
			return err
		}
		fmt.Printf("Deleted task %s\n", id)
		return nil
	},
}

var planValidateFix bool

var planValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the plan manifest and task files for consistency",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		fmt.Println("Running plan validation...")
		issues, err := Plan.ValidatePlan()
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			fmt.Println("Plan validation OK")
			return nil
		}
		fmt.Printf("Plan validation found %d issues:\n", len(issues))
		for _, i := range issues {
			fmt.Printf(" - %s\n", i)
		}
		if !planValidateFix {
			return &core.UserError{Msg: "plan validation failed"}
		}

		fmt.Println("Attempting to auto-fix plan issues...")
		_, _, fixes, err := RepoCheck.Validate(true)
		if err != nil {
			return err
		}
		for _, f := range fixes {
			fmt.Printf(" - fixed: %s\n", f)
		}
		issues, err = Plan.ValidatePlan()
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			fmt.Println("Plan validation OK after fixes")
			return nil
		}
		fmt.Printf("Plan still has %d issues after fixes:\n", len(issues))
		for _, i := range issues {
			fmt.Printf(" - %s\n", i)
		}
		return &core.UserError{Msg: "plan validation failed"}
	},
}

func init() {
	planCmd.PersistentFlags().BoolVar(&planAIValidate, "ai-validate", false, "run advisory AI validation before transitions")

	planCreateCmd.Flags().StringVar(&planCreateKind, "kind", "", "task kind: bug or feature (default from config)")
	planCreateCmd.Flags().StringVar(&planCreateTitle, "title", "", "task title")
	planCreateCmd.Flags().StringVar(&planCreateContent, "content", "", "initial task.md content")
	planCreateCmd.Flags().StringVar(&planCreateAssignee, "assignee", "", "task assignee")
	_ = planCreateCmd.RegisterFlagCompletionFunc("kind", completeKinds)

	planUpdateCmd.Flags().StringVar(&planUpdateTitle, "title", "", "new title")
	planUpdateCmd.Flags().StringVar(&planUpdateAssignee, "assignee", "", "new assignee")
	planUpdateCmd.Flags().StringVar(&planUpdateContent, "content", "", "replacement task.md content")

	planListCmd.Flags().StringVar(&planListStatus, "status", "", "filter by status")
	_ = planListCmd.RegisterFlagCompletionFunc("status", completeStatuses)

	planLogCmd.Flags().StringVar(&planLogMessage, "message", "", "history entry body")
	planLogCmd.Flags().StringVar(&planLogAuthor, "author", "", "history entry author")

	planDeleteCmd.Flags().BoolVar(&planDeleteYes, "yes", false, "skip the confirmation prompt")

	planValidateCmd.Flags().BoolVar(&planValidateFix, "fix", false, "apply auto-fixes and re-validate")

	planCmd.AddCommand(planCreateCmd, planUpdateCmd, planListCmd, planShowCmd,
		planLogCmd, planDeleteCmd, planValidateCmd)
	rootCmd.AddCommand(planCmd)
}
