/*
errors.go - Centralized error types for the rental ledger engine

PURPOSE:
  All error kinds the engine surfaces to its callers, in one place.
  Backends and the API layer wrap or match these with errors.Is/As.

ERROR CATEGORIES:
  1. Storage errors - backing file missing, unreadable or corrupt
  2. Import errors  - uploaded snapshot has no usable tabular shape
  3. Conflicts      - the store changed between load and commit
  4. Lookup errors  - position or id does not address a record

NOT ERRORS:
  Unparseable dates and numbers inside a record degrade to sentinel
  values during migration. The record stays in the ledger.

SEE ALSO:
  - store.go: Backends return ErrNoLedger and *ConflictError
  - engine.go: Boundary operations wrap these with operation context
  - api/handlers.go: Maps each kind to an HTTP status
*/
package rental

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStorageUnavailable is returned when the backing store cannot be read
	// or holds content that cannot be parsed. Never retried internally.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNoLedger is returned by a Store when nothing has been persisted yet.
	// It unwraps to ErrStorageUnavailable for callers that require a ledger.
	ErrNoLedger = fmt.Errorf("no ledger persisted yet: %w", ErrStorageUnavailable)

	// ErrSchemaUnrecoverable is returned when an imported snapshot cannot be
	// coerced into any tabular shape. The import is aborted with no write.
	ErrSchemaUnrecoverable = errors.New("snapshot schema unrecoverable")

	// ErrConcurrentModification is returned when a commit was prepared
	// against a version of the ledger that is no longer current.
	ErrConcurrentModification = errors.New("ledger changed since it was loaded")

	// ErrPositionOutOfRange is returned when a position does not address a
	// record of the full, unfiltered ledger.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrRecordNotFound is returned when no record carries the requested id.
	ErrRecordNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StorageError describes a failed read or write of the backing store.
type StorageError struct {
	Op   string // "read", "write"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// ConflictError reports the version a commit expected and the version found.
type ConflictError struct {
	Expected Version
	Actual   Version
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger changed since it was loaded: expected version %q, found %q",
		e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrentModification
}

// SchemaError explains why an imported snapshot was rejected.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot schema unrecoverable: %s: %v", e.Reason, e.Err)
	}
	return "snapshot schema unrecoverable: " + e.Reason
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaUnrecoverable
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if reloading and repeating the user action may
// succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchemaUnrecoverable) ||
		errors.Is(err, ErrPositionOutOfRange)
}

// IsNotFound returns true if the error indicates a missing ledger or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoLedger) ||
		errors.Is(err, ErrRecordNotFound)
}
