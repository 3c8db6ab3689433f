package core

import "fmt"

// UserError marks a failure the operator can act on: bad input, a failed
// precondition, a status-guard mismatch, or an unknown id. The CLI maps it
// to exit code 2 and prints the hint, when present, on its own line.
type UserError struct {
	Msg  string
	Hint string
}

func (e *UserError) Error() string {
	return e.Msg
}

// userErrf builds a UserError with a formatted message and no hint.
func userErrf(format string, args ...any) *UserError {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}

// notFoundErr is the canonical unknown-task error.
func notFoundErr(id string) *UserError {
	return userErrf("plan: task %q not found", id)
}
