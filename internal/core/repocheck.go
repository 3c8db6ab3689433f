package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/repokit/pkg/models"
)

// requiredRepoFiles must exist at the repo root for a repo to validate.
var requiredRepoFiles = []string{"go.mod", "README.md", "LICENSE", "CONTRIBUTING.md"}

// RepoChecker validates repository structure and governance conventions and
// can apply a set of safe auto-fixes.
type RepoChecker interface {
	// Validate returns blocking errors and advisory warnings. When fix is
	// true, auto-fixes are applied first and the repo is re-validated.
	Validate(fix bool) (errors, warnings, fixes []string, err error)
}

type repoChecker struct {
	repoRoot string
	store    TaskStore
	plan     PlanManager
}

// NewRepoChecker builds a checker over the given root, manifest store, and
// plan manager.
func NewRepoChecker(repoRoot string, store TaskStore, plan PlanManager) RepoChecker {
	return &repoChecker{repoRoot: repoRoot, store: store, plan: plan}
}

func (c *repoChecker) Validate(fix bool) ([]string, []string, []string, error) {
	errs, warns, err := c.collect()
	if err != nil {
		return nil, nil, nil, err
	}
	if !fix || (len(errs) == 0 && len(warns) == 0) {
		return errs, warns, nil, nil
	}

	fixes, err := c.autoFix()
	if err != nil {
		return nil, nil, nil, err
	}
	errs, warns, err = c.collect()
	if err != nil {
		return nil, nil, nil, err
	}
	return errs, warns, fixes, nil
}

func (c *repoChecker) collect() ([]string, []string, error) {
	var errs, warns []string

	for _, name := range requiredRepoFiles {
		if _, err := os.Stat(filepath.Join(c.repoRoot, name)); err != nil {
			errs = append(errs, "Missing required file: "+name)
		}
	}

	if _, err := os.Stat(filepath.Join(c.repoRoot, "docs")); err != nil {
		warns = append(warns, "docs/ missing")
	}

	warns = append(warns, c.checkWorkflows()...)

	if _, err := os.Stat(filepath.Join(c.repoRoot, "scripts")); err != nil {
		warns = append(warns, "scripts/ missing")
	}

	planIssues, err := c.plan.ValidatePlan()
	if err != nil {
		return nil, nil, err
	}
	errs = append(errs, planIssues...)

	if _, err := os.Stat(filepath.Join(c.repoRoot, "project.toml")); err == nil {
		report, err := ValidateProjectManifest(c.repoRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("validating project.toml: %w", err)
		}
		errs = append(errs, report.Errors...)
		warns = append(warns, report.Warnings...)
	}

	warns = append(warns, c.checkAIHeuristics()...)

	return errs, warns, nil
}

// checkWorkflows requires at least one workflow file that parses as YAML
// and carries the 'on' and 'jobs' keys.
func (c *repoChecker) checkWorkflows() []string {
	dir := filepath.Join(c.repoRoot, ".github", "workflows")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{".github/workflows missing"}
	}
	found := false
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var wf map[any]any
		if err := yaml.Unmarshal(data, &wf); err != nil {
			continue
		}
		// yaml may resolve a bare 'on' key to boolean true.
		_, hasOn := wf["on"]
		if !hasOn {
			_, hasOn = wf[true]
		}
		if _, hasJobs := wf["jobs"]; hasOn && hasJobs {
			found = true
			break
		}
	}
	if !found {
		return []string{"No parseable workflow files found under .github/workflows"}
	}
	return nil
}

func (c *repoChecker) checkAIHeuristics() []string {
	var warns []string
	_, err1 := os.Stat(filepath.Join(c.repoRoot, ".github", "copilot-instructions.md"))
	_, err2 := os.Stat(filepath.Join(c.repoRoot, ".github", "ai"))
	if err1 != nil && err2 != nil {
		warns = append(warns, "No AI guidelines or .github/copilot-instructions.md found")
	}
	readme, _ := os.ReadFile(filepath.Join(c.repoRoot, "README.md"))
	if !strings.Contains(strings.ToLower(string(readme)), "ai") {
		warns = append(warns, "README doesn't mention AI collaboration guidance")
	}
	return warns
}

// autoFix applies the safe repairs: restore CONTRIBUTING.md from a known
// copy, normalize legacy statuses, repair dangling task_file references,
// and move finished tasks into the archive.
func (c *repoChecker) autoFix() ([]string, error) {
	var fixes []string

	if _, err := os.Stat(filepath.Join(c.repoRoot, "CONTRIBUTING.md")); err != nil {
		for _, cand := range []string{"docs/contributing.md", ".github/CONTRIBUTING.md"} {
			src := filepath.Join(c.repoRoot, cand)
			data, err := os.ReadFile(src)
			if err != nil {
				continue
			}
			if err := os.WriteFile(filepath.Join(c.repoRoot, "CONTRIBUTING.md"), data, 0o644); err != nil {
				return nil, fmt.Errorf("restoring CONTRIBUTING.md: %w", err)
			}
			fixes = append(fixes, "Copied "+cand+" -> CONTRIBUTING.md")
			break
		}
	}

	plan, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	changed := false
	for i := range plan.Tasks {
		t := &plan.Tasks[i]

		switch string(t.Status) {
		case "open":
			t.Status = models.StatusPendingReview
			fixes = append(fixes, fmt.Sprintf("Updated status for %s: open -> pending_review", t.ID))
			changed = true
		case "done":
			t.Status = models.StatusFinished
			fixes = append(fixes, fmt.Sprintf("Updated status for %s: done -> finished", t.ID))
			changed = true
		}

		if t.TaskFile != "" {
			if _, err := os.Stat(filepath.Join(c.store.PlanDir(), t.TaskFile)); err != nil {
				newTF := fmt.Sprintf("tasks/%s/task.md", t.ID)
				newPath := filepath.Join(c.store.PlanDir(), newTF)
				if _, err := os.Stat(newPath); err == nil {
					fixes = append(fixes, fmt.Sprintf("Fixed task_file for %s: %s -> %s", t.ID, t.TaskFile, newTF))
				} else {
					if err := os.MkdirAll(filepath.Dir(newPath), 0o750); err != nil {
						return nil, err
					}
					placeholder := fmt.Sprintf("# Task %s\n\nAutomatically created.\n", t.ID)
					if err := os.WriteFile(newPath, []byte(placeholder), 0o644); err != nil {
						return nil, err
					}
					fixes = append(fixes, fmt.Sprintf("Created placeholder task file for %s", t.ID))
				}
				t.TaskFile = newTF
				changed = true
			}
		} else {
			newTF := fmt.Sprintf("tasks/%s/task.md", t.ID)
			newPath := filepath.Join(c.store.PlanDir(), newTF)
			if _, err := os.Stat(newPath); err != nil {
				if err := os.MkdirAll(filepath.Dir(newPath), 0o750); err != nil {
					return nil, err
				}
				placeholder := fmt.Sprintf("# Task %s\n\nAutomatically created.\n", t.ID)
				if err := os.WriteFile(newPath, []byte(placeholder), 0o644); err != nil {
					return nil, err
				}
				fixes = append(fixes, "Created task file "+newTF)
			} else {
				fixes = append(fixes, "Found existing task file "+newTF)
			}
			t.TaskFile = newTF
			changed = true
		}

		if t.Status == models.StatusFinished && !strings.HasPrefix(t.TaskFile, "archive/") {
			if _, err := os.Stat(filepath.Join(c.store.PlanDir(), t.TaskFile)); err == nil {
				if err := c.store.Archive(t.ID); err != nil {
					return nil, err
				}
				fixes = append(fixes, fmt.Sprintf("Moved %s to archive/%s", t.TaskFile, t.ID))
				t.TaskFile = fmt.Sprintf("archive/%s/task.md", t.ID)
				changed = true
			}
		}
	}
	if changed {
		if err := c.store.Save(plan); err != nil {
			return nil, err
		}
	}
	return fixes, nil
}
