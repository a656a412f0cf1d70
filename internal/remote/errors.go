package remote

import (
	"errors"
	"fmt"
)

// Postgres error codes the classifier recognizes.
const (
	// codeSerializationFailure is a transient conflict - safe to retry.
	codeSerializationFailure = "40001"
	// codeUniqueViolation means the upsert's conflict key assumption is
	// wrong - permanent, surfaced as ConflictError.
	codeUniqueViolation = "23505"
)

// RemoteError is a failed call against the remote store, classified
// retryable or not. Network-level failures are always retryable;
// HTTP failures are classified by status and error code.
type RemoteError struct {
	Status    int    // HTTP status, 0 for transport failures
	Code      string // remote error code, if the body carried one
	Message   string
	Retryable bool
	Err       error // underlying transport error, if any
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote error (status %d, code %q): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote call failed: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ConflictError means an upsert violated an expected conflict key.
// Never retried automatically; surfaced so operators can reconcile.
type ConflictError struct {
	Table   string
	Key     string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s (key %s): %s", e.Table, e.Key, e.Message)
}

// IsRetryable reports whether err is a transient remote failure worth
// retrying. Validation, auth, and conflict failures are not.
func IsRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// classify converts a non-2xx response into the right error type.
func classify(table, conflictKey string, status int, code, message string) error {
	if code == codeUniqueViolation {
		return &ConflictError{Table: table, Key: conflictKey, Message: message}
	}

	retryable := status == 408 || status == 429 || status >= 500 ||
		code == codeSerializationFailure

	return &RemoteError{
		Status:    status,
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}
