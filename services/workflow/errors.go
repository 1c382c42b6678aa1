package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced report, staff member, or gallery
	// submission does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means the compare-and-set guard failed at commit time
	// because another actor mutated the record first. Callers must re-fetch
	// and retry with fresh expected state; the engine never retries.
	ErrConflict = errors.New("conflict: record changed since it was read")

	// ErrPreconditionFailed means the record exists but is not in a state
	// where the requested transition is legal. Unlike ErrConflict this is a
	// logical error, not a racing one, and blind retries will not help.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidStaff means the assignment target is missing or inactive.
	ErrInvalidStaff = errors.New("staff member missing or inactive")

	// ErrInvalidReportStatus means a gallery submission referenced a report
	// that is not completed.
	ErrInvalidReportStatus = errors.New("report is not completed")
)

// ValidationError reports malformed input (empty rejection reason, percentage
// out of range, unknown category) before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
