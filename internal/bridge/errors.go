package bridge

import (
	"errors"
	"fmt"
)

// ErrCallTimeout indicates a native call exceeded the gateway's per-call
// deadline. The registry and event queue remain usable afterwards.
var ErrCallTimeout = errors.New("bridge call timed out")

// CallError wraps a failed native call with its operation name. It is the Go
// shape of a bridge call failure: recoverable, logged with context, and
// propagated to the caller.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("bridge call %s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError builds a CallError for the given operation.
func NewCallError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}
