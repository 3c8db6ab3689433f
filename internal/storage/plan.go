// Package storage implements the on-disk representation of the plan: the
// TOML manifest, the per-task file trees under the active and archive roots,
// the id counter, the history ledger, and the reports collection.
package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/valter-silva-au/repokit/pkg/models"
)

const (
	manifestName = "todo.toml"
	counterName  = "next_id.txt"

	// TasksDir and ArchiveDir are the two storage roots a task subtree can
	// occupy, relative to the plan directory. Status "finished" implies
	// ArchiveDir; every other status implies TasksDir.
	TasksDir   = "tasks"
	ArchiveDir = "archive"
)

// PlanStore manages the manifest and the per-task directory trees.
//
// The store is deliberately lock-free: the CLI performs one operation per
// invocation and the design assumes a single operator per repository.
// Concurrent invocations can race on the manifest read-modify-write.
type PlanStore interface {
	// Load reads the manifest. A missing manifest is not an error; it
	// yields an empty plan.
	Load() (*models.Plan, error)

	// Save rewrites the manifest from the full ordered task collection,
	// preserving insertion order.
	Save(plan *models.Plan) error

	// AllocateID returns the next zero-padded numeric id and advances the
	// persisted counter. A missing or corrupt counter is recovered by
	// scanning existing numeric ids (max+1). An id still present in the
	// plan is never reused.
	AllocateID(plan *models.Plan) (string, error)

	// TaskDir resolves a task's on-disk root, checking the active root
	// first, then the archive root. If neither exists it returns the
	// active path (for new tasks).
	TaskDir(id string) string

	// ActiveDir and ArchivedDir return the two possible locations without
	// consulting the filesystem.
	ActiveDir(id string) string
	ArchivedDir(id string) string

	// Archive moves a task subtree from the active root to the archive
	// root; Restore performs the inverse. Both try an atomic rename first
	// and fall back to a recursive copy followed by source deletion for
	// cross-device safety.
	Archive(id string) error
	Restore(id string) error

	// Remove deletes the task subtree from both roots. The manifest entry
	// is the caller's responsibility.
	Remove(id string) error

	// PlanDir returns the absolute plan directory.
	PlanDir() string
}

type filePlanStore struct {
	planDir string
}

// NewPlanStore creates a PlanStore rooted at repoRoot/planDir
// (conventionally repoRoot/plan).
func NewPlanStore(repoRoot, planDir string) PlanStore {
	if planDir == "" {
		planDir = "plan"
	}
	return &filePlanStore{planDir: filepath.Join(repoRoot, planDir)}
}

func (s *filePlanStore) PlanDir() string {
	return s.planDir
}

func (s *filePlanStore) manifestPath() string {
	return filepath.Join(s.planDir, manifestName)
}

func (s *filePlanStore) counterPath() string {
	return filepath.Join(s.planDir, counterName)
}

func (s *filePlanStore) Load() (*models.Plan, error) {
	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Plan{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.manifestPath(), err)
	}
	var plan models.Plan
	if err := toml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.manifestPath(), err)
	}
	return &plan, nil
}

func (s *filePlanStore) Save(plan *models.Plan) error {
	if err := os.MkdirAll(s.planDir, 0o750); err != nil {
		return fmt.Errorf("creating plan dir: %w", err)
	}
	data, err := toml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("serializing manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.manifestPath(), err)
	}
	return nil
}

func (s *filePlanStore) AllocateID(plan *models.Plan) (string, error) {
	next := s.readCounter(plan)

	// Skip ids that are still live in the plan. The counter can lag behind
	// after a scan recovery or a hand-edited manifest.
	for plan.Find(fmt.Sprintf("%04d", next)) != nil {
		next++
	}

	if err := os.MkdirAll(s.planDir, 0o750); err != nil {
		return "", fmt.Errorf("creating plan dir for id counter: %w", err)
	}
	if err := os.WriteFile(s.counterPath(), []byte(fmt.Sprintf("%04d\n", next+1)), 0o644); err != nil {
		return "", fmt.Errorf("writing id counter: %w", err)
	}
	return fmt.Sprintf("%04d", next), nil
}

// readCounter returns the next id from the counter file, or max existing
// numeric id + 1 when the counter is missing or unparseable.
func (s *filePlanStore) readCounter(plan *models.Plan) int {
	data, err := os.ReadFile(s.counterPath())
	if err == nil {
		if n, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && n > 0 {
			return n
		}
	}
	max := 0
	for _, t := range plan.Tasks {
		if n, perr := strconv.Atoi(t.ID); perr == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func (s *filePlanStore) ActiveDir(id string) string {
	return filepath.Join(s.planDir, TasksDir, id)
}

func (s *filePlanStore) ArchivedDir(id string) string {
	return filepath.Join(s.planDir, ArchiveDir, id)
}

func (s *filePlanStore) TaskDir(id string) string {
	active := s.ActiveDir(id)
	if _, err := os.Stat(active); err == nil {
		return active
	}
	archived := s.ArchivedDir(id)
	if _, err := os.Stat(archived); err == nil {
		return archived
	}
	return active
}

func (s *filePlanStore) Archive(id string) error {
	return relocate(s.ActiveDir(id), s.ArchivedDir(id))
}

func (s *filePlanStore) Restore(id string) error {
	return relocate(s.ArchivedDir(id), s.ActiveDir(id))
}

func (s *filePlanStore) Remove(id string) error {
	for _, dir := range []string{s.ActiveDir(id), s.ArchivedDir(id)} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

// relocate moves src to dst: rename first, recursive copy + source delete as
// the cross-device fallback. A missing src is a no-op.
func relocate(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("removing source %s after copy: %w", src, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
