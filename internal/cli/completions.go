package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/pkg/models"
)

// completeTaskIDs lists task IDs with their title and status as description.
func completeTaskIDs(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Plan == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	tasks, err := Plan.ListTasks("")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, t := range tasks {
		if toComplete == "" || strings.HasPrefix(t.ID, toComplete) {
			ids = append(ids, t.ID+"\t"+t.Title+" ["+string(t.Status)+"]")
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeStatuses lists the lifecycle statuses.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.StatusPendingReview) + "\tAwaiting review",
		string(models.StatusQueued) + "\tAccepted, ready to start",
		string(models.StatusWorking) + "\tActively being worked on",
		string(models.StatusTesting) + "\tUnder test",
		string(models.StatusUnderAcceptance) + "\tAwaiting acceptance",
		string(models.StatusFinished) + "\tDone and archived",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeKinds lists the task kinds.
func completeKinds(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"feature\tNew functionality",
		"bug\tDefect fix",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeDecisions lists the review decisions.
func completeDecisions(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"accept\tQueue the task for work",
		"reject\tRecord feedback, status unchanged",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeHookNames lists the known hook extension points.
func completeHookNames(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, tr := range core.Transitions {
		names = append(names, tr.PreHook, tr.PostHook)
	}
	names = append(names, core.RejectPostHook)
	return names, cobra.ShellCompDirectiveNoFileComp
}
