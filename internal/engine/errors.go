package engine

import (
	"errors"
	"fmt"
)

// SyncError describes a sync that was abandoned. It is logged, never
// returned to the caller that triggered the sync.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Op names the step that failed, e.g. "upsert Address".
	Op string

	// Key is the profile field involved, if any.
	Key string

	// Err is the underlying error.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// CodeUpsertFailed indicates the contact store rejected an upsert.
	CodeUpsertFailed SyncErrorCode = "UPSERT_FAILED"

	// CodeUnknownState indicates a state abbreviation missing from the
	// country's state list.
	CodeUnknownState SyncErrorCode = "UNKNOWN_STATE"

	// CodeLookupFailed indicates a read from a store or reference table failed.
	CodeLookupFailed SyncErrorCode = "LOOKUP_FAILED"

	// CodeWriteFailed indicates a profile field write failed.
	CodeWriteFailed SyncErrorCode = "WRITE_FAILED"

	// CodeResolveFailed indicates identity resolution failed for a reason
	// other than a missing link.
	CodeResolveFailed SyncErrorCode = "RESOLVE_FAILED"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s): %v", e.Code, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first SyncError in err's chain, or "".
func CodeOf(err error) SyncErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newSyncError(code SyncErrorCode, op, key string, err error) *SyncError {
	return &SyncError{Code: code, Op: op, Key: key, Err: err}
}
