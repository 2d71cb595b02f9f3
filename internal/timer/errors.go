package timer

import "fmt"

// ValidationError signals missing or malformed input, rejected before
// any state change or repository call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Msg)
}

// PreconditionError signals an operation that is invalid in the
// session's current state, rejected before any state change or
// repository call.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition: %s", e.Msg)
}

// RepositoryError wraps a persistence failure. The session stays in
// its prior state when one occurs; callers may retry the operation.
type RepositoryError struct {
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository: %v", e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
