package collection

import (
	"errors"
	"fmt"
)

// ErrSuperseded is reported for a load whose result was discarded because a newer load was
// issued before it completed.
var ErrSuperseded = errors.New("load superseded by a newer request")

// OpError is a failed user-initiated operation as surfaced on the snapshot. It is never
// returned across the load or bulk boundary as a Go error the caller must handle; the UI
// reads it from the store.
type OpError struct {
	// Op names the operation that failed: "load", "bulk_verify", "bulk_delete", ...
	Op string
	// Err is the underlying cause, typically an *api.APIError.
	Err error
	// Retryable is true when repeating the operation may succeed.
	Retryable bool
}

// NewOpError wraps err for op. Retryable is taken from the error chain when any error in it
// reports Temporary().
func NewOpError(op string, err error) *OpError {
	var t interface{ Temporary() bool }
	return &OpError{
		Op:        op,
		Err:       err,
		Retryable: errors.As(err, &t) && t.Temporary(),
	}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
