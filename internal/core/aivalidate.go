package core

import (
	"fmt"

	"github.com/valter-silva-au/repokit/pkg/models"
)

// Validator produces an advisory report for a pending transition. The
// result never blocks the transition: an unavailable or failing provider is
// downgraded to a benign ok=true report explaining the situation.
type Validator interface {
	Evaluate(taskID string, from, to models.TaskStatus) *models.ValidationReport
}

// evaluateFunc is the pluggable provider call. It may fail; the adapter
// absorbs the failure.
type evaluateFunc func(taskID string, from, to models.TaskStatus) (summary string, suggestions []string, err error)

type providerValidator struct {
	provider string
	evaluate evaluateFunc
}

// NewValidator creates a Validator for the named provider. "stub" is built
// in; an empty or unknown provider name yields unavailable-but-benign
// reports.
func NewValidator(provider string) Validator {
	v := &providerValidator{provider: provider}
	if provider == "stub" {
		v.evaluate = stubEvaluate
	}
	return v
}

func (v *providerValidator) Evaluate(taskID string, from, to models.TaskStatus) *models.ValidationReport {
	report := &models.ValidationReport{
		Tool:       "repokit",
		Kind:       "plan_transition",
		TaskID:     taskID,
		FromStatus: string(from),
		ToStatus:   string(to),
		OK:         true,
	}

	switch {
	case v.provider == "":
		report.Summary = "AI provider not configured; validation skipped"
		report.Suggestions = []string{"Set ai.provider in .repokit.yaml (or LLM_PROVIDER=stub) to enable advisory validation"}
	case v.evaluate == nil:
		report.Summary = fmt.Sprintf("AI provider %q unavailable/non-fatal", v.provider)
		report.Suggestions = []string{"Use the built-in 'stub' provider or configure a supported one"}
	default:
		summary, suggestions, err := v.evaluate(taskID, from, to)
		if err != nil {
			report.Summary = fmt.Sprintf("AI validation unavailable/non-fatal: %v", err)
			report.Suggestions = []string{"Check the provider configuration with 'repokit ai doctor'"}
			break
		}
		report.Summary = summary
		report.Suggestions = suggestions
	}
	return report
}

// stubEvaluate is the built-in no-network provider used for wiring tests
// and hook development.
func stubEvaluate(taskID string, from, to models.TaskStatus) (string, []string, error) {
	return fmt.Sprintf("stub validation completed for %s (%s -> %s)", taskID, from, to),
		[]string{"Review the persisted report under the task's reports/ directory"},
		nil
}
