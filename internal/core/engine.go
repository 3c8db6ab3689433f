package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valter-silva-au/repokit/internal/hooks"
	"github.com/valter-silva-au/repokit/pkg/models"
)

// TaskStore is the manifest and file-tree access the engine needs. Defined
// locally so core never imports the storage package; internal/storage
// satisfies it and app.go wires the two together.
type TaskStore interface {
	Load() (*models.Plan, error)
	Save(plan *models.Plan) error
	AllocateID(plan *models.Plan) (string, error)
	TaskDir(id string) string
	ActiveDir(id string) string
	Archive(id string) error
	Restore(id string) error
	Remove(id string) error
	PlanDir() string
}

// HistoryLedger is the append-only per-task log the engine records into.
type HistoryLedger interface {
	Append(id, author, message string) error
	ReadAll(id string) ([]models.HistoryEntry, error)
}

// ReportStore covers the evidence collection checks consult and the AI
// report persistence.
type ReportStore interface {
	HasReports(id string) bool
	WriteValidation(id string, report *models.ValidationReport) (string, error)
}

// HookRunner executes named extension-point scripts.
type HookRunner interface {
	Run(name string, ctx hooks.Context, mode hooks.Mode) error
}

// EventLogger records plan activity. May be nil-wrapped by the caller;
// the engine treats every event write as best-effort.
type EventLogger interface {
	LogEvent(eventType, taskID string, data map[string]any) error
}

// TransitionOptions carries the per-invocation inputs of a transition.
type TransitionOptions struct {
	Message    string
	Author     string
	AIValidate bool
}

// TaskUpdate holds the mutable fields of a task. Empty fields are left
// unchanged; Content, when set, replaces the content document in place.
type TaskUpdate struct {
	Title    string
	Assignee string
	Content  *string
}

// PlanManager orchestrates the plan lifecycle: creation, direct edits,
// guarded transitions, history, and deletion.
type PlanManager interface {
	CreateTask(kind models.TaskKind, title, content, assignee string) (*models.Task, error)
	UpdateTask(id string, update TaskUpdate) error
	GetTask(id string) (*models.Task, error)
	ListTasks(status models.TaskStatus) ([]models.Task, error)
	History(id string) ([]models.HistoryEntry, error)
	Log(id, author, message string) error

	// Transition runs one edge of the state machine in strict order:
	// precondition check, optional AI validation, blocking pre-hook,
	// guarded status mutation with relocation on archive-crossing edges,
	// store persist, history append, best-effort post-hook.
	Transition(id string, tr Transition, opts TransitionOptions) error

	// Reject records a review rejection: history plus a dedicated
	// best-effort hook, no status change.
	Reject(id string, opts TransitionOptions) error

	DeleteTask(id string) error

	// ValidatePlan collects manifest consistency issues as a list so one
	// invocation reports every problem at once.
	ValidatePlan() ([]string, error)
}

type planManager struct {
	repoRoot  string
	store     TaskStore
	history   HistoryLedger
	reports   ReportStore
	hooks     HookRunner
	validator Validator
	events    EventLogger
}

// NewPlanManager wires the engine's collaborators. validator and events may
// be nil; AI validation and event logging are then skipped.
func NewPlanManager(repoRoot string, store TaskStore, history HistoryLedger, reports ReportStore, hookRunner HookRunner, validator Validator, events EventLogger) PlanManager {
	return &planManager{
		repoRoot:  repoRoot,
		store:     store,
		history:   history,
		reports:   reports,
		hooks:     hookRunner,
		validator: validator,
		events:    events,
	}
}

func (m *planManager) CreateTask(kind models.TaskKind, title, content, assignee string) (*models.Task, error) {
	plan, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	id, err := m.store.AllocateID(plan)
	if err != nil {
		return nil, err
	}

	dir := m.store.ActiveDir(id)
	if err := os.MkdirAll(filepath.Join(dir, "history"), 0o750); err != nil {
		return nil, fmt.Errorf("creating task dir for %s: %w", id, err)
	}
	if content == "" {
		content = fmt.Sprintf("# %s\n", title)
	}
	if err := os.WriteFile(filepath.Join(dir, "task.md"), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing task content for %s: %w", id, err)
	}

	task := models.Task{
		ID:       id,
		Kind:     kind,
		Title:    title,
		Status:   models.StatusPendingReview,
		Assignee: assignee,
		TaskFile: fmt.Sprintf("tasks/%s/task.md", id),
	}
	plan.Tasks = append(plan.Tasks, task)
	if err := m.store.Save(plan); err != nil {
		return nil, err
	}
	m.logEvent("task.created", id, map[string]any{"kind": string(kind), "title": title})
	return &task, nil
}

func (m *planManager) UpdateTask(id string, update TaskUpdate) error {
	plan, err := m.store.Load()
	if err != nil {
		return err
	}
	task := plan.Find(id)
	if task == nil {
		return notFoundErr(id)
	}
	if update.Title != "" {
		task.Title = update.Title
	}
	if update.Assignee != "" {
		task.Assignee = update.Assignee
	}
	if update.Content != nil && task.TaskFile != "" {
		path := filepath.Join(m.store.PlanDir(), task.TaskFile)
		if err := os.WriteFile(path, []byte(*update.Content), 0o644); err != nil {
			return fmt.Errorf("writing task content for %s: %w", id, err)
		}
	}
	return m.store.Save(plan)
}

func (m *planManager) GetTask(id string) (*models.Task, error) {
	plan, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	task := plan.Find(id)
	if task == nil {
		return nil, notFoundErr(id)
	}
	t := *task
	return &t, nil
}

func (m *planManager) ListTasks(status models.TaskStatus) ([]models.Task, error) {
	plan, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if status == "" {
		return plan.Tasks, nil
	}
	var tasks []models.Task
	for _, t := range plan.Tasks {
		if t.Status == status {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (m *planManager) History(id string) ([]models.HistoryEntry, error) {
	if _, err := m.GetTask(id); err != nil {
		return nil, err
	}
	return m.history.ReadAll(id)
}

func (m *planManager) Log(id, author, message string) error {
	if _, err := m.GetTask(id); err != nil {
		return err
	}
	if err := m.history.Append(id, author, message); err != nil {
		return err
	}
	m.logEvent("task.logged", id, nil)
	return nil
}

func (m *planManager) Transition(id string, tr Transition, opts TransitionOptions) error {
	plan, err := m.store.Load()
	if err != nil {
		return err
	}
	task := plan.Find(id)
	if task == nil {
		return notFoundErr(id)
	}

	// 1. Built-in precondition check; aborts before any mutation or hook.
	env, err := m.checkEnv(task)
	if err != nil {
		return err
	}
	if err := runPrecondition(tr, env); err != nil {
		return err
	}

	// 2. Advisory AI validation. Never aborts; the persisted report path is
	// threaded into the hooks.
	var aiPath string
	if opts.AIValidate && m.validator != nil {
		report := m.validator.Evaluate(id, task.Status, tr.To)
		if p, werr := m.reports.WriteValidation(id, report); werr != nil {
			fmt.Fprintf(os.Stderr, "AI validation report write error (non-fatal): %v\n", werr)
		} else {
			aiPath = p
		}
	}

	// 3. Blocking pre-hook.
	hookCtx := hooks.Context{
		TaskID:           id,
		RepoRoot:         m.repoRoot,
		CurrentStatus:    string(task.Status),
		NewStatus:        string(tr.To),
		TaskFile:         task.TaskFile,
		AIValidationPath: aiPath,
	}
	if err := m.hooks.Run(tr.PreHook, hookCtx, hooks.Blocking); err != nil {
		return &UserError{Msg: err.Error()}
	}

	// 4. Guarded mutation: re-read the plan so the guard sees the current
	// state, not the snapshot hooks may have invalidated.
	plan, err = m.store.Load()
	if err != nil {
		return err
	}
	task = plan.Find(id)
	if task == nil {
		return notFoundErr(id)
	}
	if task.Status != tr.From {
		return &UserError{
			Msg:  fmt.Sprintf("plan: cannot change status for %s: expected %q but current status is %q", id, tr.From, task.Status),
			Hint: tr.Hint,
		}
	}

	// 5/6. Relocation for the archive-crossing edges, with content_ref
	// rewritten to match the new root.
	switch tr.Name {
	case TransitionFinish.Name:
		if err := m.store.Archive(id); err != nil {
			return err
		}
		task.TaskFile = fmt.Sprintf("archive/%s/task.md", id)
	case TransitionReopen.Name:
		if strings.HasPrefix(task.TaskFile, "archive/") {
			if err := m.store.Restore(id); err != nil {
				return err
			}
			task.TaskFile = fmt.Sprintf("tasks/%s/task.md", id)
		}
	}

	// 7. Commit.
	task.Status = tr.To
	if err := m.store.Save(plan); err != nil {
		return err
	}

	// 8. History is recorded even when the message is empty. The status is
	// already committed, so a failure here is surfaced but never rolls
	// anything back.
	histErr := m.history.Append(id, opts.Author, opts.Message)

	m.logEvent("task.status_changed", id, map[string]any{
		"from":       string(tr.From),
		"to":         string(tr.To),
		"transition": tr.Name,
	})

	// 9. Best-effort post-hook. The context reflects the committed state:
	// status and, after an archive-crossing edge, the relocated content path.
	hookCtx.CurrentStatus = string(tr.To)
	hookCtx.TaskFile = task.TaskFile
	_ = m.hooks.Run(tr.PostHook, hookCtx, hooks.BestEffort)

	if histErr != nil {
		return fmt.Errorf("status committed to %q but history append failed: %w", tr.To, histErr)
	}
	return nil
}

func (m *planManager) Reject(id string, opts TransitionOptions) error {
	plan, err := m.store.Load()
	if err != nil {
		return err
	}
	task := plan.Find(id)
	if task == nil {
		return notFoundErr(id)
	}
	if err := m.history.Append(id, opts.Author, opts.Message); err != nil {
		return err
	}
	_ = m.hooks.Run(RejectPostHook, hooks.Context{
		TaskID:        id,
		RepoRoot:      m.repoRoot,
		CurrentStatus: string(task.Status),
		TaskFile:      task.TaskFile,
	}, hooks.BestEffort)
	m.logEvent("task.review_rejected", id, nil)
	return nil
}

func (m *planManager) DeleteTask(id string) error {
	plan, err := m.store.Load()
	if err != nil {
		return err
	}
	idx := -1
	for i := range plan.Tasks {
		if plan.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFoundErr(id)
	}
	if err := m.store.Remove(id); err != nil {
		return err
	}
	plan.Tasks = append(plan.Tasks[:idx], plan.Tasks[idx+1:]...)
	if err := m.store.Save(plan); err != nil {
		return err
	}
	m.logEvent("task.deleted", id, nil)
	return nil
}

func (m *planManager) ValidatePlan() ([]string, error) {
	plan, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	var issues []string
	if len(plan.Tasks) == 0 {
		issues = append(issues, "plan: no tasks found in todo.toml")
	}
	for _, t := range plan.Tasks {
		if strings.TrimSpace(t.ID) == "" {
			issues = append(issues, fmt.Sprintf("plan: task with empty id: %q", t.Title))
			continue
		}
		if _, err := models.ParseKind(string(t.Kind)); err != nil {
			issues = append(issues, fmt.Sprintf("plan: task %s has invalid kind %q, must be 'bug' or 'feature'", t.ID, t.Kind))
		}
		if t.Status != "" {
			if _, err := models.ParseStatus(string(t.Status)); err != nil {
				issues = append(issues, fmt.Sprintf("plan: task %s has invalid status %q", t.ID, t.Status))
			}
		}
		if t.TaskFile == "" {
			issues = append(issues, fmt.Sprintf("plan: task %s missing task_file", t.ID))
			continue
		}
		if _, err := os.Stat(filepath.Join(m.store.PlanDir(), t.TaskFile)); err != nil {
			issues = append(issues, fmt.Sprintf("plan: referenced task_file %q not found", t.TaskFile))
		} else if t.Status == models.StatusFinished && !strings.HasPrefix(t.TaskFile, "archive/") {
			issues = append(issues, fmt.Sprintf("plan: task %s marked finished but task_file %q is not in archive/", t.ID, t.TaskFile))
		}
	}
	if _, err := os.Stat(filepath.Join(m.store.PlanDir(), "tasks")); err != nil {
		issues = append(issues, "plan/tasks/ missing")
	}
	return issues, nil
}

// checkEnv snapshots the task's surroundings for precondition checks.
func (m *planManager) checkEnv(task *models.Task) (checkEnv, error) {
	entries, err := m.history.ReadAll(task.ID)
	if err != nil {
		return checkEnv{}, err
	}
	return checkEnv{
		RepoRoot:   m.repoRoot,
		Task:       task,
		TaskDir:    m.store.TaskDir(task.ID),
		History:    entries,
		HasReports: m.reports.HasReports(task.ID),
	}, nil
}

func (m *planManager) logEvent(eventType, taskID string, data map[string]any) {
	if m.events == nil {
		return
	}
	_ = m.events.LogEvent(eventType, taskID, data)
}
