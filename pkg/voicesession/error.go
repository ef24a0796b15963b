package voicesession

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCapturing is returned by Release outside of a capture.
	ErrNotCapturing = errors.New("not capturing")

	// ErrStopped is returned by every operation after Stop.
	ErrStopped = errors.New("session stopped")
)

// UsageError reports an operation invoked in a state that does not allow
// it. Nothing is sent and no state changes.
type UsageError struct {
	Op  string
	Err error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("voicesession: %s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}
