// Package hooks discovers and executes user-supplied scripts at the plan's
// extension points, passing structured transition context via environment
// variables and JSON on stdin.
package hooks

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Mode makes the failure policy explicit at the call site.
type Mode int

const (
	// Blocking propagates script failures to the caller.
	Blocking Mode = iota
	// BestEffort logs script failures and reports success.
	BestEffort
)

// Context is the transition context handed to every hook script. The same
// fields are exported as PLAN_* environment variables and, with snake_case
// keys, as a JSON object on the script's stdin.
type Context struct {
	TaskID           string `json:"task_id"`
	RepoRoot         string `json:"repo_root"`
	CurrentStatus    string `json:"current_status"`
	NewStatus        string `json:"new_status"`
	TaskFile         string `json:"task_file"`
	AIValidationPath string `json:"ai_validation_path"`
}

// CheckResult is the outcome of inspecting one hook script.
type CheckResult struct {
	Path string
	Err  error
}

// Runner executes hook scripts by name.
type Runner interface {
	// Run executes every script registered for name: a single file <name>
	// first, then <name>/* in lexicographic order. No matching script is a
	// no-op. All scripts must succeed; the first nonzero exit aborts the
	// remaining scripts and its trimmed combined output becomes the error.
	Run(name string, ctx Context, mode Mode) error

	// List returns the registered hook names, sorted.
	List() ([]string, error)

	// Check inspects the scripts for name (or all scripts when name is
	// empty) without executing them: each must exist, be executable, and
	// start with a shebang line.
	Check(name string) ([]CheckResult, error)
}

type scriptRunner struct {
	dir  string
	logf func(format string, args ...any)
}

// NewRunner creates a Runner over the given hooks directory
// (conventionally <repo root>/scripts/plan-hooks).
func NewRunner(dir string) Runner {
	return &scriptRunner{
		dir: dir,
		logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}
}

// discover returns the script paths for a hook name in execution order.
func (r *scriptRunner) discover(name string) ([]string, error) {
	var scripts []string
	single := filepath.Join(r.dir, name)
	if info, err := os.Stat(single); err == nil && !info.IsDir() {
		scripts = append(scripts, single)
	}
	dir := filepath.Join(r.dir, name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading hook dir %s: %w", dir, err)
		}
		var paths []string
		for _, e := range entries {
			if !e.IsDir() {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(paths)
		scripts = append(scripts, paths...)
	}
	return scripts, nil
}

func (r *scriptRunner) Run(name string, ctx Context, mode Mode) error {
	err := r.runAll(name, ctx)
	if err != nil && mode == BestEffort {
		r.logf("hook %q failed (ignored): %v", name, err)
		return nil
	}
	return err
}

func (r *scriptRunner) runAll(name string, ctx Context) error {
	scripts, err := r.discover(name)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if err := runScript(script, name, ctx); err != nil {
			return err
		}
	}
	return nil
}

func runScript(path, name string, ctx Context) error {
	cmd := exec.Command(path)
	cmd.Env = append(os.Environ(),
		"PLAN_TASK_ID="+ctx.TaskID,
		"PLAN_REPO_ROOT="+ctx.RepoRoot,
		"PLAN_CURRENT_STATUS="+ctx.CurrentStatus,
		"PLAN_NEW_STATUS="+ctx.NewStatus,
		"PLAN_TASK_FILE="+ctx.TaskFile,
	)
	if ctx.AIValidationPath != "" {
		cmd.Env = append(cmd.Env, "PLAN_AI_VALIDATION_PATH="+ctx.AIValidationPath)
	}
	cmd.Stdin = bytes.NewReader(MarshalContext(ctx))

	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("hook %q failed for %s: %s", name, ctx.TaskID, detail)
	}
	return nil
}

func (r *scriptRunner) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading hooks dir %s: %w", r.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (r *scriptRunner) Check(name string) ([]CheckResult, error) {
	var candidates []string
	if name != "" {
		scripts, err := r.discover(name)
		if err != nil {
			return nil, err
		}
		if len(scripts) == 0 {
			return nil, fmt.Errorf("hook %q not found in %s", name, r.dir)
		}
		candidates = scripts
	} else {
		names, err := r.List()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			scripts, err := r.discover(n)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, scripts...)
		}
	}

	results := make([]CheckResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, CheckResult{Path: c, Err: checkScript(c)})
	}
	return results, nil
}

func checkScript(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("not executable")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()
	head := make([]byte, 2)
	if n, _ := f.Read(head); n < 2 || string(head) != "#!" {
		return fmt.Errorf("missing shebang line")
	}
	return nil
}
