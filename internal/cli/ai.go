package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/pkg/models"
)

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Inspect and exercise the advisory AI validation adapter",
}

var aiDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Show the AI validation configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("AI validation configuration:")
		if AIProvider == "" {
			fmt.Println(" - provider: (not configured)")
			fmt.Println(" - Set ai.provider in .repokit.yaml or LLM_PROVIDER in the environment")
		} else {
			fmt.Printf(" - provider: %s\n", AIProvider)
		}
		fmt.Println(" - Validation is advisory: it never blocks transitions")
		fmt.Println(" - Reports are written under plan task reports/ directories")
		fmt.Println(" - Hooks can read PLAN_AI_VALIDATION_PATH (JSON report) if present")
		return nil
	},
}

var (
	aiEvalTaskID string
	aiEvalFrom   string
	aiEvalTo     string
)

var aiEvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run a one-off advisory evaluation and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if AIValidator == nil {
			return fmt.Errorf("AI validator not initialized")
		}
		from, err := models.ParseStatus(aiEvalFrom)
		if err != nil {
			return &core.UserError{Msg: err.Error()}
		}
		to, err := models.ParseStatus(aiEvalTo)
		if err != nil {
			return &core.UserError{Msg: err.Error()}
		}
		report := AIValidator.Evaluate(aiEvalTaskID, from, to)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	aiEvalCmd.Flags().StringVar(&aiEvalTaskID, "id", "0000", "task id to evaluate")
	aiEvalCmd.Flags().StringVar(&aiEvalFrom, "from", string(models.StatusPendingReview), "transition source status")
	aiEvalCmd.Flags().StringVar(&aiEvalTo, "to", string(models.StatusQueued), "transition target status")
	_ = aiEvalCmd.RegisterFlagCompletionFunc("from", completeStatuses)
	_ = aiEvalCmd.RegisterFlagCompletionFunc("to", completeStatuses)

	aiCmd.AddCommand(aiDoctorCmd, aiEvalCmd)
	rootCmd.AddCommand(aiCmd)
}
