package models

// ValidationReport is the persisted output of an advisory AI validation run
// against a single transition. OK is advisory only: a false value never
// blocks the transition.
type ValidationReport struct {
	Tool        string   `json:"tool"`
	Kind        string   `json:"kind"`
	TaskID      string   `json:"task_id"`
	FromStatus  string   `json:"from_status"`
	ToStatus    string   `json:"to_status"`
	OK          bool     `json:"ok"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}
