package merge

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation mirrors entity.ErrInvariantViolation at the merge
// package's boundary: Merge wraps any invariant failure surfaced while
// checking each side's segmentation before matching (byte mismatch on
// reconstruction, duplicate identity keys) so callers
// never need to import pkg/entity just to check errors.Is against this.
var ErrInvariantViolation = errors.New("merge: invariant violation")

// InvariantViolationError reports a self-check failure in Merge's own
// output, distinct from a Conflict (which is a normal, expected outcome
// surfaced through Result.Conflicts, not an error).
type InvariantViolationError struct {
	Detail string
	Err    error
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("merge: invariant violation: %s: %v", e.Detail, e.Err)
}

func (e *InvariantViolationError) Unwrap() []error { return []error{ErrInvariantViolation, e.Err} }
