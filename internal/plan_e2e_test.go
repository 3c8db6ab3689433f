package internal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/internal/hooks"
	"github.com/valter-silva-au/repokit/internal/storage"
	"github.com/valter-silva-au/repokit/pkg/models"
)

const lifecycleTaskDoc = `# Add search

## Acceptance criteria
- queries return ranked results

## Test plan
- run the integration suite
`

// lifecycleEnv wires the real storage, hooks, and engine over one temp repo.
type lifecycleEnv struct {
	root  string
	store storage.PlanStore
	plan  core.PlanManager
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	root := t.TempDir()
	store := storage.NewPlanStore(root, "plan")
	hist := storage.NewHistoryManager(store)
	reports := storage.NewReportManager(store)
	runner := hooks.NewRunner(filepath.Join(root, "scripts", "plan-hooks"))
	plan := core.NewPlanManager(root, store, hist, reports, runner, core.NewValidator("stub"), nil)
	return &lifecycleEnv{root: root, store: store, plan: plan}
}

func (e *lifecycleEnv) writeHook(t *testing.T, name, body string) {
	t.Helper()
	path := filepath.Join(e.root, "scripts", "plan-hooks", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func (e *lifecycleEnv) status(t *testing.T, id string) models.TaskStatus {
	t.Helper()
	task, err := e.plan.GetTask(id)
	if err != nil {
		t.Fatalf("GetTask %s: %v", id, err)
	}
	return task.Status
}

func TestFullLifecycle(t *testing.T) {
	e := newLifecycleEnv(t)

	task, err := e.plan.CreateTask(models.KindFeature, "Add search", lifecycleTaskDoc, "alice")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	id := task.ID
	if id != "0001" || task.Status != models.StatusPendingReview {
		t.Fatalf("created task = %+v", task)
	}

	steps := []struct {
		tr   core.Transition
		want models.TaskStatus
	}{
		{core.TransitionReviewAccept, models.StatusQueued},
		{core.TransitionStart, models.StatusWorking},
		{core.TransitionTest, models.StatusTesting},
	}
	for _, step := range steps {
		if err := e.plan.Transition(id, step.tr, core.TransitionOptions{Message: "moving on"}); err != nil {
			t.Fatalf("%s: %v", step.tr.Name, err)
		}
		if got := e.status(t, id); got != step.want {
			t.Fatalf("after %s: status = %q, want %q", step.tr.Name, got, step.want)
		}
	}

	// Acceptance and finish both need evidence; a reports artifact covers both.
	reportDir := filepath.Join(e.store.TaskDir(id), "reports")
	if err := os.MkdirAll(reportDir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(reportDir, "tests.txt"), []byte("all green\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.plan.Transition(id, core.TransitionAccept, core.TransitionOptions{}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := e.plan.Transition(id, core.TransitionFinish, core.TransitionOptions{Message: "shipping"}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	finished, err := e.plan.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if finished.Status != models.StatusFinished {
		t.Errorf("status = %q", finished.Status)
	}
	if finished.TaskFile != "archive/0001/task.md" {
		t.Errorf("task file = %q", finished.TaskFile)
	}
	if _, err := os.Stat(filepath.Join(e.root, "plan", "archive", id, "task.md")); err != nil {
		t.Errorf("archived subtree missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.root, "plan", "tasks", id)); !os.IsNotExist(err) {
		t.Error("active subtree survived the finish")
	}

	// History filenames are epoch seconds, so a fast run may collapse
	// same-second entries; at least the first record must survive.
	history, err := e.plan.History(id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) == 0 {
		t.Error("history is empty after the lifecycle")
	}

	// Reopen restores the subtree and re-enters review.
	if err := e.plan.Transition(id, core.TransitionReopen, core.TransitionOptions{}); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened, err := e.plan.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Status != models.StatusPendingReview || reopened.TaskFile != "tasks/0001/task.md" {
		t.Errorf("reopened task = %+v", reopened)
	}
	if _, err := os.Stat(filepath.Join(e.root, "plan", "tasks", id, "task.md")); err != nil {
		t.Errorf("restored subtree missing: %v", err)
	}
}

func TestTransitionRejectedForWrongStatus(t *testing.T) {
	e := newLifecycleEnv(t)
	task, err := e.plan.CreateTask(models.KindBug, "Fix crash", lifecycleTaskDoc, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.plan.Transition(task.ID, core.TransitionReviewAccept, core.TransitionOptions{}); err != nil {
		t.Fatal(err)
	}

	// Queued, not working: the test edge must be refused by the guard.
	err = e.plan.Transition(task.ID, core.TransitionTest, core.TransitionOptions{})
	if err == nil {
		t.Fatal("expected guard failure")
	}
	var ue *core.UserError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UserError, got %T: %v", err, err)
	}
	if !strings.Contains(ue.Msg, `expected "working" but current status is "queued"`) {
		t.Errorf("message = %q", ue.Msg)
	}
	if got := e.status(t, task.ID); got != models.StatusQueued {
		t.Errorf("status changed to %q", got)
	}
}

func TestBlockingPreHookStopsTransition(t *testing.T) {
	e := newLifecycleEnv(t)
	e.writeHook(t, "pre_start", "echo branch is dirty\nexit 1\n")

	task, err := e.plan.CreateTask(models.KindFeature, "Guarded", lifecycleTaskDoc, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.plan.Transition(task.ID, core.TransitionReviewAccept, core.TransitionOptions{}); err != nil {
		t.Fatal(err)
	}

	err = e.plan.Transition(task.ID, core.TransitionStart, core.TransitionOptions{})
	if err == nil {
		t.Fatal("expected pre-hook to block")
	}
	if !strings.Contains(err.Error(), "branch is dirty") {
		t.Errorf("error = %q", err)
	}
	if got := e.status(t, task.ID); got != models.StatusQueued {
		t.Errorf("status = %q after blocked transition", got)
	}
}

func TestHookSeesAIValidationReport(t *testing.T) {
	e := newLifecycleEnv(t)
	seen := filepath.Join(e.root, "seen_path.txt")
	e.writeHook(t, "pre_start", `printf '%s' "$PLAN_AI_VALIDATION_PATH" > "`+seen+`"`)

	task, err := e.plan.CreateTask(models.KindFeature, "Validated", lifecycleTaskDoc, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.plan.Transition(task.ID, core.TransitionReviewAccept, core.TransitionOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := e.plan.Transition(task.ID, core.TransitionStart, core.TransitionOptions{AIValidate: true}); err != nil {
		t.Fatalf("start: %v", err)
	}

	pathBytes, err := os.ReadFile(seen)
	if err != nil {
		t.Fatalf("hook never recorded the path: %v", err)
	}
	reportPath := string(pathBytes)
	if filepath.Base(reportPath) != "ai_validation.json" {
		t.Errorf("validation path = %q", reportPath)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var report models.ValidationReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if report.Tool != "repokit" || !report.OK || report.ToStatus != "working" {
		t.Errorf("report = %+v", report)
	}
}

func TestPostFinishHookSeesArchivedPath(t *testing.T) {
	e := newLifecycleEnv(t)
	seen := filepath.Join(e.root, "task_file.txt")
	e.writeHook(t, "post_finish", `printf '%s' "$PLAN_TASK_FILE" > "`+seen+`"`)

	task, err := e.plan.CreateTask(models.KindFeature, "Archived", lifecycleTaskDoc, "")
	if err != nil {
		t.Fatal(err)
	}
	id := task.ID
	for _, tr := range []core.Transition{core.TransitionReviewAccept, core.TransitionStart, core.TransitionTest} {
		if err := e.plan.Transition(id, tr, core.TransitionOptions{}); err != nil {
			t.Fatalf("%s: %v", tr.Name, err)
		}
	}
	reportDir := filepath.Join(e.store.TaskDir(id), "reports")
	if err := os.MkdirAll(reportDir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(reportDir, "tests.txt"), []byte("all green\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.plan.Transition(id, core.TransitionAccept, core.TransitionOptions{}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := e.plan.Transition(id, core.TransitionFinish, core.TransitionOptions{}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	data, err := os.ReadFile(seen)
	if err != nil {
		t.Fatalf("hook never recorded the path: %v", err)
	}
	want := "archive/" + id + "/task.md"
	if string(data) != want {
		t.Errorf("post_finish saw PLAN_TASK_FILE=%q, want %q", data, want)
	}
	if _, err := os.Stat(filepath.Join(e.root, "plan", string(data))); err != nil {
		t.Errorf("path handed to the hook does not exist: %v", err)
	}
}

func TestRejectLeavesTaskInReview(t *testing.T) {
	e := newLifecycleEnv(t)
	task, err := e.plan.CreateTask(models.KindFeature, "Rejected", lifecycleTaskDoc, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := e.plan.Reject(task.ID, core.TransitionOptions{Message: "needs a sharper scope", Author: "carol"}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got := e.status(t, task.ID); got != models.StatusPendingReview {
		t.Errorf("status = %q after reject", got)
	}
	history, err := e.plan.History(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Message != "needs a sharper scope" || history[0].Author != "carol" {
		t.Errorf("history = %+v", history)
	}
}
