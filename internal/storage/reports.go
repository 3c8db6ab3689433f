package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/repokit/pkg/models"
)

// ReportManager manages the per-task reports collection: an unordered set of
// named evidence artifacts under <task dir>/reports, plus the AI validation
// report the transition engine persists there.
type ReportManager interface {
	// HasReports reports whether the task has at least one artifact.
	HasReports(id string) bool

	// WriteValidation persists the report to the fixed path
	// reports/ai_validation.json plus a per-transition snapshot, and
	// returns the primary path.
	WriteValidation(id string, report *models.ValidationReport) (string, error)
}

type fileReportManager struct {
	store PlanStore
}

// NewReportManager creates a ReportManager that resolves task directories
// through the given store.
func NewReportManager(store PlanStore) ReportManager {
	return &fileReportManager{store: store}
}

func (m *fileReportManager) reportsDir(id string) string {
	return filepath.Join(m.store.TaskDir(id), "reports")
}

func (m *fileReportManager) HasReports(id string) bool {
	entries, err := os.ReadDir(m.reportsDir(id))
	return err == nil && len(entries) > 0
}

func (m *fileReportManager) WriteValidation(id string, report *models.ValidationReport) (string, error) {
	dir := m.reportsDir(id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating reports dir for %s: %w", id, err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling validation report: %w", err)
	}
	path := filepath.Join(dir, "ai_validation.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing validation report: %w", err)
	}
	// Per-transition copy for audit; best-effort.
	snapshot := filepath.Join(dir, fmt.Sprintf("ai_validation_%s_to_%s.json", report.FromStatus, report.ToStatus))
	_ = os.WriteFile(snapshot, data, 0o644)
	return path, nil
}
