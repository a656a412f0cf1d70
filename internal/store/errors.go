package store

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tillsync/tillsync/internal/pos"
)

// ErrNotFound is returned by Update when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateID is returned by Add and BulkAdd on a primary key
// collision. BulkPut upserts instead of failing.
var ErrDuplicateID = errors.New("duplicate record id")

// StorageError wraps a persistence-engine failure (I/O, corruption,
// quota). Fatal to the triggering operation, never to the process:
// callers surface it and the UI degrades to offline-only mode.
type StorageError struct {
	Op         string
	Collection pos.Collection
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is a StorageError.
// Uses errors.As to handle wrapped errors.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ValidationError rejects a malformed record before any write.
type ValidationError struct {
	Collection pos.Collection
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record: field %q %s", e.Collection, e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRecord runs struct-tag validation and converts the first
// failure into a ValidationError.
func validateRecord(col pos.Collection, rec pos.Record) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Collection: col,
			Field:      fe.Field(),
			Reason:     fmt.Sprintf("failed %q constraint", fe.Tag()),
		}
	}
	return &ValidationError{Collection: col, Field: "", Reason: err.Error()}
}
