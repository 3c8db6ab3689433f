package cli

import (
	"github.com/valter-silva-au/repokit/internal/core"
	"github.com/valter-silva-au/repokit/internal/hooks"
	"github.com/valter-silva-au/repokit/internal/observability"
)

// Service instances and resolved configuration, set during app
// initialization in app.go.
var (
	RepoRoot    string
	Plan        core.PlanManager
	RepoCheck   core.RepoChecker
	Gen         core.Generator
	HookRunner  hooks.Runner
	EventLog    observability.EventLog
	AIValidator core.Validator

	// AIProvider is the configured advisory validation backend.
	AIProvider string

	// PlanDir is the resolved plan directory, relative to RepoRoot.
	PlanDir string
	// HooksDir is the resolved hook-script directory, relative to RepoRoot.
	HooksDir string
	// DefaultKind and DefaultAuthor come from .repokit.yaml.
	DefaultKind   string
	DefaultAuthor string
)
