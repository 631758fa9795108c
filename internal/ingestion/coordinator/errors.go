package coordinator

import (
	"fmt"
)

// StoreError marks a transient record-store failure. It is logged and
// propagated; the upstream transport owns redelivery, this core never
// retries internally.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ResolutionError marks malformed candidate data encountered while
// resolving duplicates.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string { return "duplicate resolution: " + e.Reason }
