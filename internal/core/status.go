// Package core contains the business logic for repokit: the plan transition
// engine and its precondition checks, AI validation, configuration,
// repository validation, project-manifest checks, and template generation.
package core

import (
	"fmt"

	"github.com/valter-silva-au/repokit/pkg/models"
)

// Transition is one guarded edge of the plan state machine. PreHook runs
// blocking before the status mutation, PostHook best-effort after it.
type Transition struct {
	Name     string
	From     models.TaskStatus
	To       models.TaskStatus
	PreHook  string
	PostHook string
	Hint     string
}

// The linear forward edges plus the reopen edge back from finished.
var (
	TransitionReviewAccept = Transition{
		Name:     "review_accept",
		From:     models.StatusPendingReview,
		To:       models.StatusQueued,
		PreHook:  "pre_review_accept",
		PostHook: "post_review_accept",
		Hint:     "Accept is only valid while the task is 'pending_review'.",
	}
	TransitionStart = Transition{
		Name:     "start",
		From:     models.StatusQueued,
		To:       models.StatusWorking,
		PreHook:  "pre_start",
		PostHook: "post_start",
		Hint:     "Task must be 'queued' to start. Run 'repokit plan review --decision accept' first.",
	}
	TransitionTest = Transition{
		Name:     "test",
		From:     models.StatusWorking,
		To:       models.StatusTesting,
		PreHook:  "pre_test",
		PostHook: "post_test",
		Hint:     "Task must be 'working' to move to testing (use 'repokit plan start').",
	}
	TransitionAccept = Transition{
		Name:     "accept",
		From:     models.StatusTesting,
		To:       models.StatusUnderAcceptance,
		PreHook:  "pre_accept",
		PostHook: "post_accept",
		Hint:     "Task must be 'testing' before acceptance.",
	}
	TransitionFinish = Transition{
		Name:     "finish",
		From:     models.StatusUnderAcceptance,
		To:       models.StatusFinished,
		PreHook:  "pre_finish",
		PostHook: "post_finish",
		Hint:     "Task must be 'under_acceptance' before finishing.",
	}
	TransitionReopen = Transition{
		Name:     "reopen",
		From:     models.StatusFinished,
		To:       models.StatusPendingReview,
		PreHook:  "pre_reopen",
		PostHook: "post_reopen",
		Hint:     "Only 'finished' tasks can be reopened.",
	}
)

// Transitions lists every edge in lifecycle order.
var Transitions = []Transition{
	TransitionReviewAccept,
	TransitionStart,
	TransitionTest,
	TransitionAccept,
	TransitionFinish,
	TransitionReopen,
}

// TransitionByName resolves an edge by its name.
func TransitionByName(name string) (Transition, error) {
	for _, tr := range Transitions {
		if tr.Name == name {
			return tr, nil
		}
	}
	return Transition{}, fmt.Errorf("unknown transition %q", name)
}

// RejectPostHook is the hook run after a review rejection. Reject is not a
// state-machine edge: it records history only and the status stays
// pending_review.
const RejectPostHook = "post_review_reject"
