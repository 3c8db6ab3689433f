package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/repokit/internal/hooks"
	"github.com/valter-silva-au/repokit/pkg/models"
)

// fakeStore keeps the manifest in memory and task subtrees on disk so the
// engine's file writes and the precondition checks see real paths.
type fakeStore struct {
	dir      string
	plan     *models.Plan
	archived map[string]bool
	trace    *[]string
}

func newFakeStore(t *testing.T, trace *[]string, tasks ...models.Task) *fakeStore {
	t.Helper()
	s := &fakeStore{
		dir:      filepath.Join(t.TempDir(), "plan"),
		plan:     &models.Plan{Tasks: tasks},
		archived: map[string]bool{},
		trace:    trace,
	}
	if err := os.MkdirAll(filepath.Join(s.dir, "tasks"), 0o750); err != nil {
		t.Fatal(err)
	}
	return s
}

func copyPlan(p *models.Plan) *models.Plan {
	cp := &models.Plan{Tasks: make([]models.Task, len(p.Tasks))}
	copy(cp.Tasks, p.Tasks)
	return cp
}

func (s *fakeStore) record(op string) {
	if s.trace != nil {
		*s.trace = append(*s.trace, op)
	}
}

func (s *fakeStore) Load() (*models.Plan, error) { return copyPlan(s.plan), nil }

func (s *fakeStore) Save(plan *models.Plan) error {
	s.record("save")
	s.plan = copyPlan(plan)
	return nil
}

func (s *fakeStore) AllocateID(plan *models.Plan) (string, error) {
	max := 0
	for _, t := range plan.Tasks {
		var n int
		if _, err := fmt.Sscanf(t.ID, "%d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%04d", max+1), nil
}

func (s *fakeStore) ActiveDir(id string) string { return filepath.Join(s.dir, "tasks", id) }

func (s *fakeStore) archiveDir(id string) string { return filepath.Join(s.dir, "archive", id) }

func (s *fakeStore) TaskDir(id string) string {
	if s.archived[id] {
		return s.archiveDir(id)
	}
	return s.ActiveDir(id)
}

func (s *fakeStore) Archive(id string) error {
	s.record("archive")
	if _, err := os.Stat(s.ActiveDir(id)); err == nil {
		if err := os.MkdirAll(filepath.Dir(s.archiveDir(id)), 0o750); err != nil {
			return err
		}
		if err := os.Rename(s.ActiveDir(id), s.archiveDir(id)); err != nil {
			return err
		}
	}
	s.archived[id] = true
	return nil
}

func (s *fakeStore) Restore(id string) error {
	s.record("restore")
	if _, err := os.Stat(s.archiveDir(id)); err == nil {
		if err := os.MkdirAll(filepath.Dir(s.ActiveDir(id)), 0o750); err != nil {
			return err
		}
		if err := os.Rename(s.archiveDir(id), s.ActiveDir(id)); err != nil {
			return err
		}
	}
	s.archived[id] = false
	return nil
}

func (s *fakeStore) Remove(id string) error {
	s.record("remove")
	if err := os.RemoveAll(s.ActiveDir(id)); err != nil {
		return err
	}
	return os.RemoveAll(s.archiveDir(id))
}

func (s *fakeStore) PlanDir() string { return s.dir }

type fakeHistory struct {
	entries   map[string][]models.HistoryEntry
	appendErr error
	trace     *[]string
}

func (h *fakeHistory) Append(id, author, message string) error {
	if h.trace != nil {
		*h.trace = append(*h.trace, "history")
	}
	if h.appendErr != nil {
		return h.appendErr
	}
	if h.entries == nil {
		h.entries = map[string][]models.HistoryEntry{}
	}
	h.entries[id] = append(h.entries[id], models.HistoryEntry{Author: author, Message: message})
	return nil
}

func (h *fakeHistory) ReadAll(id string) ([]models.HistoryEntry, error) {
	return h.entries[id], nil
}

type fakeReports struct {
	has   bool
	path  string
	wrote []*models.ValidationReport
}

func (r *fakeReports) HasReports(string) bool { return r.has }

func (r *fakeReports) WriteValidation(id string, report *models.ValidationReport) (string, error) {
	r.wrote = append(r.wrote, report)
	if r.path == "" {
		r.path = "/reports/ai_validation.json"
	}
	return r.path, nil
}

type hookCall struct {
	name string
	ctx  hooks.Context
	mode hooks.Mode
}

type fakeHooks struct {
	calls []hookCall
	fail  map[string]error
	onRun func(name string)
	trace *[]string
}

func (h *fakeHooks) Run(name string, ctx hooks.Context, mode hooks.Mode) error {
	if h.trace != nil {
		*h.trace = append(*h.trace, "hook:"+name)
	}
	h.calls = append(h.calls, hookCall{name, ctx, mode})
	if h.onRun != nil {
		h.onRun(name)
	}
	if err := h.fail[name]; err != nil {
		if mode == hooks.BestEffort {
			return nil
		}
		return err
	}
	return nil
}

type fakeEvents struct{ types []string }

func (e *fakeEvents) LogEvent(eventType, taskID string, data map[string]any) error {
	e.types = append(e.types, eventType)
	return nil
}

type engineFixture struct {
	store   *fakeStore
	history *fakeHistory
	reports *fakeReports
	hooks   *fakeHooks
	events  *fakeEvents
	trace   []string
	mgr     PlanManager
}

func newEngine(t *testing.T, tasks ...models.Task) *engineFixture {
	t.Helper()
	f := &engineFixture{}
	f.store = newFakeStore(t, &f.trace, tasks...)
	f.history = &fakeHistory{trace: &f.trace}
	f.reports = &fakeReports{}
	f.hooks = &fakeHooks{trace: &f.trace}
	f.events = &fakeEvents{}
	f.mgr = NewPlanManager(filepath.Dir(f.store.dir), f.store, f.history, f.reports, f.hooks, NewValidator(""), f.events)
	return f
}

func (f *engineFixture) task(t *testing.T, id string) models.Task {
	t.Helper()
	task := f.store.plan.Find(id)
	if task == nil {
		t.Fatalf("task %s missing from plan", id)
	}
	return *task
}

func indexOf(trace []string, entry string) int {
	for i, e := range trace {
		if e == entry {
			return i
		}
	}
	return -1
}

func TestCreateTask(t *testing.T) {
	f := newEngine(t)

	task, err := f.mgr.CreateTask(models.KindFeature, "Add search", "", "alice")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "0001" || task.Status != models.StatusPendingReview {
		t.Errorf("task = %+v", task)
	}
	if task.TaskFile != "tasks/0001/task.md" {
		t.Errorf("task file = %q", task.TaskFile)
	}

	data, err := os.ReadFile(filepath.Join(f.store.ActiveDir("0001"), "task.md"))
	if err != nil {
		t.Fatalf("content document missing: %v", err)
	}
	if string(data) != "# Add search\n" {
		t.Errorf("default content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(f.store.ActiveDir("0001"), "history")); err != nil {
		t.Errorf("history dir missing: %v", err)
	}
	if len(f.events.types) == 0 || f.events.types[0] != "task.created" {
		t.Errorf("events = %v", f.events.types)
	}
}

func TestTransitionStartPipelineOrder(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"})

	err := f.mgr.Transition("0001", TransitionStart, TransitionOptions{Message: "starting", Author: "bob"})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got := f.task(t, "0001").Status; got != models.StatusWorking {
		t.Errorf("status = %q, want working", got)
	}

	pre := indexOf(f.trace, "hook:pre_start")
	save := indexOf(f.trace, "save")
	hist := indexOf(f.trace, "history")
	post := indexOf(f.trace, "hook:post_start")
	if pre < 0 || save < 0 || hist < 0 || post < 0 {
		t.Fatalf("trace = %v", f.trace)
	}
	if !(pre < save && save < hist && hist < post) {
		t.Errorf("pipeline order wrong: %v", f.trace)
	}

	last := f.hooks.calls[len(f.hooks.calls)-1]
	if last.name != "post_start" || last.mode != hooks.BestEffort {
		t.Errorf("post hook call = %+v", last)
	}
	if last.ctx.CurrentStatus != "working" {
		t.Errorf("post hook sees status %q, want the committed one", last.ctx.CurrentStatus)
	}
	if indexOf(f.events.types, "task.status_changed") < 0 {
		t.Errorf("events = %v", f.events.types)
	}
}

func TestTransitionPreconditionAbortsBeforeHooks(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusPendingReview, TaskFile: "tasks/0001/task.md"})
	if err := os.MkdirAll(f.store.ActiveDir("0001"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.store.ActiveDir("0001"), "task.md"), []byte("# stub\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := f.mgr.Transition("0001", TransitionReviewAccept, TransitionOptions{})
	wantUserError(t, err, "review check failed")
	if len(f.hooks.calls) != 0 {
		t.Errorf("hooks ran despite failed precondition: %+v", f.hooks.calls)
	}
	if got := f.task(t, "0001").Status; got != models.StatusPendingReview {
		t.Errorf("status mutated to %q", got)
	}
}

func TestTransitionBlockingPreHookFailure(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"})
	f.hooks.fail = map[string]error{"pre_start": errors.New(`hook "pre_start" failed for 0001: lint errors`)}

	err := f.mgr.Transition("0001", TransitionStart, TransitionOptions{})
	ue := wantUserError(t, err, `hook "pre_start" failed`)
	if ue.Hint != "" {
		t.Errorf("hook failure carries hint %q", ue.Hint)
	}
	if got := f.task(t, "0001").Status; got != models.StatusQueued {
		t.Errorf("status = %q after blocked transition", got)
	}
	if indexOf(f.trace, "save") >= 0 {
		t.Error("plan saved despite blocked pre-hook")
	}
}

func TestTransitionStatusGuardSeesConcurrentChange(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"})
	// The pre-hook flips the stored status; the post-hook re-load must catch it.
	f.hooks.onRun = func(name string) {
		if name == "pre_start" {
			f.store.plan.Find("0001").Status = models.StatusFinished
		}
	}

	err := f.mgr.Transition("0001", TransitionStart, TransitionOptions{})
	ue := wantUserError(t, err, `cannot change status for 0001: expected "queued" but current status is "finished"`)
	if ue.Hint != TransitionStart.Hint {
		t.Errorf("hint = %q, want the transition hint", ue.Hint)
	}
	if got := f.task(t, "0001").Status; got != models.StatusFinished {
		t.Errorf("guard mutated the plan: %q", got)
	}
}

func TestTransitionFinishArchivesTask(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusUnderAcceptance, TaskFile: "tasks/0001/task.md"})
	f.reports.has = true
	if err := os.MkdirAll(f.store.ActiveDir("0001"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.store.ActiveDir("0001"), "task.md"), []byte("# done\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.mgr.Transition("0001", TransitionFinish, TransitionOptions{Message: "shipping"}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	got := f.task(t, "0001")
	if got.Status != models.StatusFinished {
		t.Errorf("status = %q", got.Status)
	}
	if got.TaskFile != "archive/0001/task.md" {
		t.Errorf("task file = %q, want archive path", got.TaskFile)
	}
	if !f.store.archived["0001"] {
		t.Error("store was not asked to archive")
	}

	// The post-hook must see the relocated path, not the pre-archive one.
	last := f.hooks.calls[len(f.hooks.calls)-1]
	if last.name != "post_finish" || last.ctx.TaskFile != "archive/0001/task.md" {
		t.Errorf("post hook ctx = %+v, want the archive path", last)
	}
}

func TestTransitionReopenRestoresArchivedTask(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusFinished, TaskFile: "archive/0001/task.md"})
	f.store.archived["0001"] = true

	if err := f.mgr.Transition("0001", TransitionReopen, TransitionOptions{}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	got := f.task(t, "0001")
	if got.Status != models.StatusPendingReview {
		t.Errorf("status = %q", got.Status)
	}
	if got.TaskFile != "tasks/0001/task.md" {
		t.Errorf("task file = %q, want active path", got.TaskFile)
	}
	if f.store.archived["0001"] {
		t.Error("task still archived after reopen")
	}
	last := f.hooks.calls[len(f.hooks.calls)-1]
	if last.name != "post_reopen" || last.ctx.TaskFile != "tasks/0001/task.md" {
		t.Errorf("post hook ctx = %+v, want the restored path", last)
	}
}

func TestTransitionReopenWithoutArchiveSkipsRestore(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusFinished, TaskFile: "tasks/0001/task.md"})

	if err := f.mgr.Transition("0001", TransitionReopen, TransitionOptions{}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if indexOf(f.trace, "restore") >= 0 {
		t.Error("restore ran for a task that was never archived")
	}
	if got := f.task(t, "0001").TaskFile; got != "tasks/0001/task.md" {
		t.Errorf("task file = %q", got)
	}
}

func TestTransitionHistoryFailureAfterCommit(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"})
	f.history.appendErr = errors.New("disk full")

	err := f.mgr.Transition("0001", TransitionStart, TransitionOptions{Message: "go"})
	if err == nil {
		t.Fatal("expected history failure to surface")
	}
	if !strings.Contains(err.Error(), `status committed to "working" but history append failed`) {
		t.Errorf("error = %q", err)
	}
	if got := f.task(t, "0001").Status; got != models.StatusWorking {
		t.Errorf("commit rolled back: status = %q", got)
	}
	if indexOf(f.trace, "hook:post_start") < 0 {
		t.Error("post hook skipped after history failure")
	}
}

func TestTransitionAIValidationThreadsReportPath(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"})

	if err := f.mgr.Transition("0001", TransitionStart, TransitionOptions{AIValidate: true}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if len(f.reports.wrote) != 1 {
		t.Fatalf("validation reports written = %d", len(f.reports.wrote))
	}
	report := f.reports.wrote[0]
	if !report.OK || report.FromStatus != "queued" || report.ToStatus != "working" {
		t.Errorf("report = %+v", report)
	}
	for _, call := range f.hooks.calls {
		if call.ctx.AIValidationPath != f.reports.path {
			t.Errorf("hook %s saw validation path %q, want %q", call.name, call.ctx.AIValidationPath, f.reports.path)
		}
	}
}

func TestTransitionWithoutAIValidation(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"})

	if err := f.mgr.Transition("0001", TransitionStart, TransitionOptions{}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if len(f.reports.wrote) != 0 {
		t.Errorf("validation ran without opt-in: %d reports", len(f.reports.wrote))
	}
	if f.hooks.calls[0].ctx.AIValidationPath != "" {
		t.Errorf("hook saw stray validation path %q", f.hooks.calls[0].ctx.AIValidationPath)
	}
}

func TestRejectKeepsStatus(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusPendingReview, TaskFile: "tasks/0001/task.md"})

	if err := f.mgr.Reject("0001", TransitionOptions{Message: "needs detail", Author: "carol"}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got := f.task(t, "0001").Status; got != models.StatusPendingReview {
		t.Errorf("status = %q after reject", got)
	}
	entries := f.history.entries["0001"]
	if len(entries) != 1 || entries[0].Message != "needs detail" || entries[0].Author != "carol" {
		t.Errorf("history = %+v", entries)
	}
	if len(f.hooks.calls) != 1 || f.hooks.calls[0].name != RejectPostHook || f.hooks.calls[0].mode != hooks.BestEffort {
		t.Errorf("hook calls = %+v", f.hooks.calls)
	}
	if indexOf(f.events.types, "task.review_rejected") < 0 {
		t.Errorf("events = %v", f.events.types)
	}
}

func TestDeleteTask(t *testing.T) {
	f := newEngine(t,
		models.Task{ID: "0001", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"},
		models.Task{ID: "0002", Status: models.StatusWorking, TaskFile: "tasks/0002/task.md"},
	)

	if err := f.mgr.DeleteTask("0001"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if f.store.plan.Find("0001") != nil {
		t.Error("task still in plan")
	}
	if f.store.plan.Find("0002") == nil {
		t.Error("unrelated task removed")
	}
	if indexOf(f.trace, "remove") < 0 {
		t.Error("store.Remove not called")
	}

	wantUserError(t, f.mgr.DeleteTask("0099"), `task "0099" not found`)
}

func TestUpdateTask(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, Title: "old", TaskFile: "tasks/0001/task.md"})
	if err := os.MkdirAll(f.store.ActiveDir("0001"), 0o750); err != nil {
		t.Fatal(err)
	}

	body := "# rewritten\n"
	err := f.mgr.UpdateTask("0001", TaskUpdate{Title: "new title", Assignee: "dave", Content: &body})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got := f.task(t, "0001")
	if got.Title != "new title" || got.Assignee != "dave" {
		t.Errorf("task = %+v", got)
	}
	data, err := os.ReadFile(filepath.Join(f.store.dir, "tasks", "0001", "task.md"))
	if err != nil {
		t.Fatalf("content not written: %v", err)
	}
	if string(data) != body {
		t.Errorf("content = %q", data)
	}
}

func TestListTasksFilter(t *testing.T) {
	f := newEngine(t,
		models.Task{ID: "0001", Status: models.StatusQueued},
		models.Task{ID: "0002", Status: models.StatusWorking},
		models.Task{ID: "0003", Status: models.StatusQueued},
	)

	all, err := f.mgr.ListTasks("")
	if err != nil || len(all) != 3 {
		t.Fatalf("ListTasks all = %v, %v", all, err)
	}
	queued, err := f.mgr.ListTasks(models.StatusQueued)
	if err != nil || len(queued) != 2 {
		t.Fatalf("ListTasks queued = %v, %v", queued, err)
	}
	for _, task := range queued {
		if task.Status != models.StatusQueued {
			t.Errorf("filter leaked %+v", task)
		}
	}
}

func TestValidatePlanCollectsIssues(t *testing.T) {
	f := newEngine(t)
	issues, err := f.mgr.ValidatePlan()
	if err != nil {
		t.Fatalf("ValidatePlan: %v", err)
	}
	if indexOf(issues, "plan: no tasks found in todo.toml") < 0 {
		t.Errorf("issues = %v", issues)
	}

	f = newEngine(t,
		models.Task{ID: "0001", Kind: "chore", Status: models.StatusQueued, TaskFile: "tasks/0001/task.md"},
		models.Task{ID: "0002", Status: "open", TaskFile: "tasks/0002/task.md"},
		models.Task{ID: "0003", Status: models.StatusFinished, TaskFile: "tasks/0003/task.md"},
		models.Task{ID: "0004", Status: models.StatusQueued},
	)
	for _, id := range []string{"0001", "0002", "0003"} {
		dir := f.store.ActiveDir(id)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "task.md"), []byte("# t\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	issues, err = f.mgr.ValidatePlan()
	if err != nil {
		t.Fatalf("ValidatePlan: %v", err)
	}
	wants := []string{
		`plan: task 0001 has invalid kind "chore", must be 'bug' or 'feature'`,
		`plan: task 0002 has invalid status "open"`,
		`plan: task 0003 marked finished but task_file "tasks/0003/task.md" is not in archive/`,
		"plan: task 0004 missing task_file",
	}
	for _, want := range wants {
		if indexOf(issues, want) < 0 {
			t.Errorf("missing issue %q in %v", want, issues)
		}
	}
}

func TestGetTaskReturnsCopy(t *testing.T) {
	f := newEngine(t, models.Task{ID: "0001", Status: models.StatusQueued, Title: "orig"})

	task, err := f.mgr.GetTask("0001")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	task.Title = "mutated"
	if got := f.task(t, "0001").Title; got != "orig" {
		t.Errorf("GetTask leaked a live pointer: title = %q", got)
	}

	if _, err := f.mgr.GetTask("0099"); err == nil {
		t.Error("expected not-found error")
	}
}
