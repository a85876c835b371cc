package cases

import (
	"errors"
	"fmt"
)

var (
	// ErrCaseNotFound is returned for unknown case ids.
	ErrCaseNotFound = errors.New("case not found")

	// ErrConcurrentModification signals a lost race on the same case id; the
	// caller must re-fetch the snapshot and retry.
	ErrConcurrentModification = errors.New("concurrent modification, retry with a fresh snapshot")

	// ErrDeadlineAlreadyElapsed signals that the scheduler already applied the
	// elapsed-deadline transition; the actor's action is stale.
	ErrDeadlineAlreadyElapsed = errors.New("deadline already elapsed, re-fetch the case")
)

// InvalidTransitionError names the illegal (status, action) pair that was
// attempted. Illegal pairs are always rejected, never silently ignored.
type InvalidTransitionError struct {
	Kind   Kind
	Status string
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: action %q not allowed on %s case in status %q", e.Action, e.Kind, e.Status)
}

// UnauthorizedError reports an actor role that may not perform the action.
type UnauthorizedError struct {
	Role   ActorRole
	Action Action
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: role %q may not perform %q", e.Role, e.Action)
}

// MissingFieldError reports a required field absent from a transition request.
type MissingFieldError struct {
	Action Action
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("action %q requires field %q", e.Action, e.Field)
}

// DownstreamError wraps a failure of an external collaborator. The case stays
// in its pre-failure state.
type DownstreamError struct {
	Service string
	Err     error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream %s failure: %v", e.Service, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}
