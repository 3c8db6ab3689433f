package models

import "fmt"

// TaskKind classifies the work a plan task tracks.
type TaskKind string

const (
	KindBug     TaskKind = "bug"
	KindFeature TaskKind = "feature"
)

// TaskStatus is the lifecycle state of a plan task. The status drives both
// the permitted transitions and the on-disk location of the task subtree.
type TaskStatus string

const (
	StatusPendingReview   TaskStatus = "pending_review"
	StatusQueued          TaskStatus = "queued"
	StatusWorking         TaskStatus = "working"
	StatusTesting         TaskStatus = "testing"
	StatusUnderAcceptance TaskStatus = "under_acceptance"
	StatusFinished        TaskStatus = "finished"
)

// AllStatuses lists the valid statuses in lifecycle order.
var AllStatuses = []TaskStatus{
	StatusPendingReview,
	StatusQueued,
	StatusWorking,
	StatusTesting,
	StatusUnderAcceptance,
	StatusFinished,
}

// ParseStatus validates a persisted status string. Unknown values are an
// error, never a silent default.
func ParseStatus(s string) (TaskStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q, must be one of: pending_review, queued, working, testing, under_acceptance, finished", s)
}

// ParseKind validates a persisted kind string. Empty is allowed (kind is
// optional on a task).
func ParseKind(s string) (TaskKind, error) {
	switch TaskKind(s) {
	case KindBug, KindFeature:
		return TaskKind(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("invalid kind %q, must be 'bug' or 'feature'", s)
}

// Task is a single entry in the plan manifest. ID is assigned at creation
// and immutable; TaskFile is the path of the content document relative to
// the plan root (tasks/<id>/task.md while active, archive/<id>/task.md once
// finished).
type Task struct {
	ID       string     `toml:"id"`
	Kind     TaskKind   `toml:"kind,omitempty"`
	Title    string     `toml:"title,omitempty"`
	Status   TaskStatus `toml:"status,omitempty"`
	Assignee string     `toml:"assignee,omitempty"`
	TaskFile string     `toml:"task_file,omitempty"`
}

// Plan is the full manifest (plan/todo.toml). Tasks is slice-backed so
// insertion order survives a load/save round-trip.
type Plan struct {
	Meta  map[string]any `toml:"meta,omitempty"`
	Tasks []Task         `toml:"task"`
}

// Find returns a pointer into the plan's task slice for the given id, or nil.
func (p *Plan) Find(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// HistoryEntry is one immutable record in a task's append-only history.
// Time (epoch seconds) is the sort and identity key.
type HistoryEntry struct {
	Time    int64
	Author  string
	Message string
}
