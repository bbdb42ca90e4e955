package workflow

import (
	"errors"
	"fmt"
)

// Domain outcomes the handlers translate to HTTP responses. Infrastructure
// failures (connection errors, constraint violations) are wrapped and passed
// through separately — they must never match one of these sentinels.
var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrForbidden          = errors.New("role not permitted for this transition")
	ErrNotFound           = errors.New("not found in caller scope")
	ErrAlreadyDecided     = errors.New("approval already decided")
	ErrInvalidated        = errors.New("approval has been invalidated")
	ErrResubmitNotAllowed = errors.New("resubmission not allowed")
	ErrVersionConflict    = errors.New("request version conflict")
)

// TransitionError reports a rejected transition with the specific pair.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ForbiddenError reports a role check failure with the roles that would
// have been accepted.
type ForbiddenError struct {
	Target   Status
	Actor    Role
	Required []Role
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not set status %s (requires one of %v)", e.Actor, e.Target, e.Required)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// ResubmitError reports why resubmission was refused.
type ResubmitError struct {
	Reason string
}

func (e *ResubmitError) Error() string {
	return "resubmission not allowed: " + e.Reason
}

func (e *ResubmitError) Unwrap() error { return ErrResubmitNotAllowed }
