package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/repokit/pkg/models"
)

func TestHasReports(t *testing.T) {
	store := newTestStore(t)
	mgr := NewReportManager(store)

	if mgr.HasReports("0001") {
		t.Error("HasReports true for missing dir")
	}

	dir := filepath.Join(store.TaskDir("0001"), "reports")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if mgr.HasReports("0001") {
		t.Error("HasReports true for empty dir")
	}

	if err := os.WriteFile(filepath.Join(dir, "tests.txt"), []byte("all green"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !mgr.HasReports("0001") {
		t.Error("HasReports false with an artifact present")
	}
}

func TestWriteValidation(t *testing.T) {
	store := newTestStore(t)
	mgr := NewReportManager(store)

	report := &models.ValidationReport{
		Tool:       "repokit",
		Kind:       "plan_transition",
		TaskID:     "0001",
		FromStatus: "queued",
		ToStatus:   "working",
		OK:         true,
		Summary:    "looks fine",
	}
	path, err := mgr.WriteValidation("0001", report)
	if err != nil {
		t.Fatalf("WriteValidation: %v", err)
	}
	if filepath.Base(path) != "ai_validation.json" {
		t.Errorf("primary path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var got models.ValidationReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if got.TaskID != report.TaskID || got.FromStatus != report.FromStatus ||
		got.ToStatus != report.ToStatus || !got.OK || got.Summary != report.Summary {
		t.Errorf("round trip changed report: %+v", got)
	}

	snapshot := filepath.Join(filepath.Dir(path), "ai_validation_queued_to_working.json")
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("per-transition snapshot missing: %v", err)
	}
}
