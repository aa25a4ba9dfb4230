/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Callers match with errors.Is(); packages wrap these with context via %w.

ERROR CATEGORIES:
  1. Boundary validation - malformed punches and requests
  2. Store errors - persistence-level failures
  3. Lookup errors - missing users/documents

SEE ALSO:
  - types.go: Punch.Validate uses the validation sentinels
  - store.go: AppendAutoLunch documents ErrDuplicateAutoLunch
*/
package punch

import "errors"

var (
	// ErrInvalidPunchType is returned when a punch carries an unknown type
	// tag. Such punches are rejected at the boundary, never persisted.
	ErrInvalidPunchType = errors.New("invalid punch type")

	// ErrMissingTechnician is returned when a punch has no technician email.
	ErrMissingTechnician = errors.New("missing technician identifier")

	// ErrMissingTimestamp is returned when a punch has a zero timestamp.
	ErrMissingTimestamp = errors.New("missing timestamp")

	// ErrInvalidClockTime is returned for time-of-day strings that are not
	// "HH:MM".
	ErrInvalidClockTime = errors.New("invalid clock time")

	// ErrDuplicateAutoLunch is returned when an auto-lunch punch already
	// exists for the technician-day. Concurrent inserter runs treat it as
	// already-done, not a failure.
	ErrDuplicateAutoLunch = errors.New("auto-lunch already recorded for day")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSettingsNotFound signals a missing settings document. Callers fall
	// back to DefaultSettings rather than failing.
	ErrSettingsNotFound = errors.New("settings document not found")
)

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPunchType) ||
		errors.Is(err, ErrMissingTechnician) ||
		errors.Is(err, ErrMissingTimestamp) ||
		errors.Is(err, ErrInvalidClockTime)
}
