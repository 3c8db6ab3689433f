package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/valter-silva-au/repokit/pkg/models"
)

// checkEnv is the read-only view a precondition check inspects. Checks are
// pure functions over this snapshot; they never mutate the store.
type checkEnv struct {
	RepoRoot   string
	Task       *models.Task
	TaskDir    string
	History    []models.HistoryEntry
	HasReports bool
}

// runPrecondition evaluates the built-in heuristic gate for a transition.
// Reopen has no precondition; the status guard alone protects it.
func runPrecondition(tr Transition, env checkEnv) error {
	switch tr.Name {
	case TransitionReviewAccept.Name:
		return checkReviewAccept(env)
	case TransitionStart.Name:
		return checkStart(env)
	case TransitionTest.Name:
		return checkTest(env)
	case TransitionAccept.Name:
		return checkAccept(env)
	case TransitionFinish.Name:
		return checkFinish(env)
	}
	return nil
}

// checkReviewAccept gates against empty/placeholder tasks: the content
// document must mention acceptance or tests, or exceed 100 characters.
func checkReviewAccept(env checkEnv) error {
	path := filepath.Join(env.TaskDir, "task.md")
	data, err := os.ReadFile(path)
	if err != nil {
		return &UserError{
			Msg:  "review check failed: task file not found: " + path,
			Hint: "Create the task content document before accepting the review.",
		}
	}
	content := strings.ToLower(string(data))
	if strings.Contains(content, "acceptance") || strings.Contains(content, "tests") || len(data) > 100 {
		return nil
	}
	return &UserError{
		Msg:  "review check failed: task appears to be missing acceptance criteria or tests in task.md",
		Hint: "Add 'Acceptance criteria' to task.md or provide a hook at " + filepath.Join("scripts/plan-hooks", TransitionReviewAccept.PreHook) + ".",
	}
}

// checkStart passes on either of two independent signals: the task is
// already queued, or any history entry records an acceptance.
func checkStart(env checkEnv) error {
	if env.Task.Status == models.StatusQueued {
		return nil
	}
	if historyMentions(env.History, "accept", "queued", "lgtm") {
		return nil
	}
	return &UserError{
		Msg:  "start check failed: no acceptance found in history and task is not queued",
		Hint: "Accept the task first ('repokit plan review --id " + env.Task.ID + " --decision accept') or provide a hook at " + filepath.Join("scripts/plan-hooks", TransitionStart.PreHook) + ".",
	}
}

// checkTest requires a test plan in the content document or a conventional
// tests directory in the surrounding project.
func checkTest(env checkEnv) error {
	data, _ := os.ReadFile(filepath.Join(env.TaskDir, "task.md"))
	if strings.Contains(strings.ToLower(string(data)), "test") {
		return nil
	}
	if _, err := os.Stat(filepath.Join(env.RepoRoot, "tests")); err == nil {
		return nil
	}
	return &UserError{
		Msg:  "test check failed: no test plan or tests detected for task",
		Hint: "Describe the test plan in task.md or provide a hook at " + filepath.Join("scripts/plan-hooks", TransitionTest.PreHook) + ".",
	}
}

// checkAccept requires evidence: a non-empty reports collection, or history
// mentioning test results.
func checkAccept(env checkEnv) error {
	if env.HasReports {
		return nil
	}
	if historyMentions(env.History, "test", "report", "passed") {
		return nil
	}
	return &UserError{
		Msg:  "accept check failed: no test reports or evidence found for task",
		Hint: "Add an artifact under the task's reports/ directory or log the test outcome with 'repokit plan log'.",
	}
}

// checkFinish requires acceptance evidence: reports, or history mentioning
// an acceptance.
func checkFinish(env checkEnv) error {
	if env.HasReports {
		return nil
	}
	if historyMentions(env.History, "accept", "acceptance") {
		return nil
	}
	return &UserError{
		Msg:  "finish check failed: no acceptance report or evidence found for task",
		Hint: "Add an acceptance artifact under reports/ or log the acceptance with 'repokit plan log'.",
	}
}

func historyMentions(entries []models.HistoryEntry, words ...string) bool {
	for _, e := range entries {
		body := strings.ToLower(e.Message)
		for _, w := range words {
			if strings.Contains(body, w) {
				return true
			}
		}
	}
	return false
}
