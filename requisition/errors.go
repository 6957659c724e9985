/*
errors.go - Centralized error types for the requisition engine

PURPOSE:
  All engine error types in one place. Only two things fail a
  generation run: invalid input (rejected before any external read) and
  the final batch write. Partial lookup results are never errors.

ERROR CATEGORIES:
  1. Validation errors - Bad input, rejected up front
  2. Persistence errors - Batch write failures, whole run aborted

USAGE:
  if errors.Is(err, requisition.ErrPersistFailed) { ... }

  var verr *requisition.ValidationError
  if errors.As(err, &verr) { ... }

SEE ALSO:
  - generator.go: Produces these errors
  - api/handlers.go: Maps them to HTTP status codes via IsClientError
*/
package requisition

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRequest is the base of every validation failure.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrPersistFailed is returned when the batch write fails. The run
	// is all-or-nothing: no document from the run is visible after this.
	ErrPersistFailed = errors.New("requisition batch persist failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a request rejected before any external
// read. Field names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// PersistError wraps a storage-layer failure from the batch write.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist requisitions: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return ErrPersistFailed }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
