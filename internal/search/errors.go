package search

import (
	"errors"
	"fmt"
)

// LimitError reports a fatal resource-limit breach. The search aborts and
// the error names the exceeded limit.
type LimitError struct {
	Limit string // option name, e.g. "maxGoals"
	Max   int
	Value int // the value that would have been reached
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("search aborted: %s limit exceeded (%d > %d)", e.Limit, e.Value, e.Max)
}

// IsLimitError reports whether err is a resource-limit breach.
// Uses errors.As to handle wrapped errors.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// InternalError reports an engine-consistency defect: duplicate variable
// assignment, non-monotonic id allocation, a missing proven rapp during
// reconstruction. These always surface to the caller with context and are
// never swallowed.
type InternalError struct {
	Op     string // operation that detected the violation
	Detail string
	Goal   NodeID // zero when not applicable
	Rapp   NodeID // zero when not applicable
}

func (e *InternalError) Error() string {
	msg := fmt.Sprintf("internal consistency violation in %s: %s", e.Op, e.Detail)
	if e.Goal != 0 {
		msg += fmt.Sprintf(" (goal=%d)", e.Goal)
	}
	if e.Rapp != 0 {
		msg += fmt.Sprintf(" (rapp=%d)", e.Rapp)
	}
	return msg
}

// IsInternalError reports whether err is an engine-consistency violation.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// UnprovableError reports that the root goal was found unprovable: every
// alternative failed and no rules remain. This is a terminal outcome, not an
// engine defect.
type UnprovableError struct {
	Goal string // rendering of the root obligation
}

func (e *UnprovableError) Error() string {
	return fmt.Sprintf("failed to prove: %s", e.Goal)
}

// IsUnprovableError reports whether err means the root goal is unprovable.
func IsUnprovableError(err error) bool {
	var ue *UnprovableError
	return errors.As(err, &ue)
}
