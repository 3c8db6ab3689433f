// Package internal provides the App struct that wires all components of
// repokit together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/repokit/internal/cli"
	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/internal/hooks"
	"github.com/valter-silva-au/repokit/internal/observability"
	"github.com/valter-silva-au/repokit/internal/storage"
)

// App holds all service dependencies for repokit.
type App struct {
	RepoRoot string
	Config   *core.Config

	// Storage layer
	PlanStore  storage.PlanStore
	HistoryMgr storage.HistoryManager
	ReportMgr  storage.ReportManager

	// Hooks
	HookRunner hooks.Runner

	// Core services
	Plan      core.PlanManager
	RepoCheck core.RepoChecker
	Gen       core.Generator
	Validator core.Validator

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of repokit. repoRoot is the
// repository the commands operate on.
func NewApp(repoRoot string) (*App, error) {
	app := &App{RepoRoot: repoRoot}

	// --- Configuration ---
	cfg, err := core.LoadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	app.PlanStore = storage.NewPlanStore(repoRoot, cfg.PlanDir)
	app.HistoryMgr = storage.NewHistoryManager(app.PlanStore)
	app.ReportMgr = storage.NewReportManager(app.PlanStore)

	// --- Hooks ---
	app.HookRunner = hooks.NewRunner(filepath.Join(repoRoot, cfg.HooksDir))

	// --- Observability ---
	eventLogPath := filepath.Join(repoRoot, ".repokit_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable event logging if the file can't be created.
		app.EventLog = nil
	}

	// --- Core services ---
	app.Validator = core.NewValidator(cfg.AIProvider)

	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}
	app.Plan = core.NewPlanManager(repoRoot, app.PlanStore, app.HistoryMgr,
		app.ReportMgr, app.HookRunner, app.Validator, evtAdapter)

	app.RepoCheck = core.NewRepoChecker(repoRoot, app.PlanStore, app.Plan)
	app.Gen = core.NewGenerator(repoRoot)

	// --- Wire CLI package-level variables ---
	cli.RepoRoot = repoRoot
	cli.Plan = app.Plan
	cli.RepoCheck = app.RepoCheck
	cli.Gen = app.Gen
	cli.HookRunner = app.HookRunner
	cli.EventLog = app.EventLog
	cli.AIValidator = app.Validator
	cli.AIProvider = cfg.AIProvider
	cli.PlanDir = cfg.PlanDir
	cli.HooksDir = cfg.HooksDir
	cli.DefaultKind = cfg.DefaultKind
	cli.DefaultAuthor = cfg.DefaultAuthor

	return app, nil
}

// Close releases resources held by the App, such as the event log file
// handle. Safe to call when EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveRepoRoot determines the repository root the commands operate on.
// It checks the REPOKIT_ROOT env var, then walks up from the current
// directory looking for .repokit.yaml or a plan/ directory.
func ResolveRepoRoot() string {
	if root := os.Getenv("REPOKIT_ROOT"); root != "" {
		return root
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".repokit.yaml")); err == nil {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, "plan")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType, taskID string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:   time.Now().UTC(),
		Type:   eventType,
		TaskID: taskID,
		Data:   data,
	})
}
