package library

import (
	"errors"
	"fmt"
)

// Error kinds returned by the services. Callers match with errors.Is; the
// menu layer turns them into human-readable messages. The services themselves
// never print or log.
var (
	// ErrNotFound means a referenced book, member, loan, or reservation id
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness rule was violated: duplicate active
	// loan, duplicate reservation, duplicate username.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState means the entity exists but is in the wrong state for
	// the operation: inactive loan, book in stock when reserving, stock
	// reduction below the borrowed count.
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden means the actor does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidArgument means identifiers supplied together do not match.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable means no copies are on the shelf and the member holds
	// no AVAILABLE reservation.
	ErrUnavailable = errors.New("unavailable")

	// ErrStorage wraps persistence failures, including corrupt stored enum
	// values.
	ErrStorage = errors.New("storage failure")
)

// storageErr tags a low-level persistence error with ErrStorage so callers
// can separate infrastructure failures from business-rule rejections.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
