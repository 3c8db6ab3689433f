package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
)

var (
	transitionMessage string
	transitionAuthor  string
	reviewDecision    string
)

// runTransition executes one lifecycle edge through the plan manager,
// applying the configured author default and the --ai-validate flag.
func runTransition(id string, tr core.Transition) error {
	if Plan == nil {
		return fmt.Errorf("plan manager not initialized")
	}
	author := transitionAuthor
	if author == "" {
		author = DefaultAuthor
	}
	opts := core.TransitionOptions{
		Message:    transitionMessage,
		Author:     author,
		AIValidate: planAIValidate,
	}
	if err := Plan.Transition(id, tr, opts); err != nil {
		return err
	}
	fmt.Printf("Task %s is now %s\n", id, tr.To)
	return nil
}

var planReviewCmd = &cobra.Command{
	Use:               "review <task-id>",
	Short:             "Record a review decision (accept moves the task to queued)",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch reviewDecision {
		case "accept":
			return runTransition(args[0], core.TransitionReviewAccept)
		case "reject":
			if Plan == nil {
				return fmt.Errorf("plan manager not initialized")
			}
			author := transitionAuthor
			if author == "" {
				author = DefaultAuthor
			}
			message := transitionMessage
			if message == "" {
				message = "review rejected"
			}
			if err := Plan.Reject(args[0], core.TransitionOptions{Message: message, Author: author}); err != nil {
				return err
			}
			fmt.Printf("Recorded rejection for task %s\n", args[0])
			return nil
		default:
			return &core.UserError{
				Msg:  fmt.Sprintf("invalid decision %q, must be 'accept' or 'reject'", reviewDecision),
				Hint: "Use --decision accept to queue the task or --decision reject to record feedback.",
			}
		}
	},
}

var planStartCmd = &cobra.Command{
	Use:               "start <task-id>",
	Short:             "Start work on a queued task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], core.TransitionStart)
	},
}

var planTestCmd = &cobra.Command{
	Use:               "test <task-id>",
	Short:             "Move a working task to testing",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], core.TransitionTest)
	},
}

var planAcceptCmd = &cobra.Command{
	Use:               "accept <task-id>",
	Short:             "Move a testing task to under_acceptance",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], core.TransitionAccept)
	},
}

var planFinishCmd = &cobra.Command{
	Use:               "finish <task-id>",
	Short:             "Finish a task and archive its files",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], core.TransitionFinish)
	},
}

var planReopenCmd = &cobra.Command{
	Use:               "reopen <task-id>",
	Short:             "Reopen a finished task for another review cycle",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], core.TransitionReopen)
	},
}

func init() {
	planReviewCmd.Flags().StringVar(&reviewDecision, "decision", "", "accept or reject")
	_ = planReviewCmd.MarkFlagRequired("decision")
	_ = planReviewCmd.RegisterFlagCompletionFunc("decision", completeDecisions)

	for _, cmd := range []*cobra.Command{planReviewCmd, planStartCmd, planTestCmd,
		planAcceptCmd, planFinishCmd, planReopenCmd} {
		cmd.Flags().StringVar(&transitionMessage, "message", "", "history entry body recorded with the transition")
		cmd.Flags().StringVar(&transitionAuthor, "author", "", "history entry author")
		planCmd.AddCommand(cmd)
	}
}
