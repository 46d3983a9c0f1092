package mediator

import (
	"fmt"

	"github.com/vinayprograms/warden/internal/trajectory"
	"github.com/vinayprograms/warden/internal/validate"
)

// ValidationError reports an action refused before classification because an
// argument failed injection-safety checks.
type ValidationError struct {
	ActionID  string
	Command   string
	Rejection *validate.Rejection
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("action %s refused: %s", e.ActionID, e.Rejection.Message())
}

// BlockedError reports an action whose command is blocked by policy. The
// executor is never consulted for these.
type BlockedError struct {
	ActionID string
	Command  string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("action %s refused: command %q is blocked by policy", e.ActionID, e.Command)
}

// AbortError reports a proposal made after the session's trajectory monitor
// detected a loop. The session is terminal; no further actions run.
type AbortError struct {
	SessionID string
	Abort     *trajectory.Abort
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("session %s aborted: %s", e.SessionID, e.Abort.Reason)
}

// UnknownActionError reports a decision for an action that is not suspended.
type UnknownActionError struct {
	ActionID string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("no action %s is awaiting a decision", e.ActionID)
}
