package registration

import "errors"

// Sentinel errors returned by the registration service. Controllers map
// these onto HTTP status codes.
var (
	// ErrNotFound covers missing courses, students, seats, and entries
	ErrNotFound = errors.New("resource not found")

	// ErrConflict covers seats already taken and duplicate active claims
	ErrConflict = errors.New("conflicting registration state")

	// ErrStateViolation covers operations the course's booking status
	// does not allow
	ErrStateViolation = errors.New("operation not allowed in current booking status")

	// ErrUnavailable covers transient contention, e.g. a held course lock
	ErrUnavailable = errors.New("course is busy, retry shortly")

	// ErrInputInvalid covers malformed identifiers and seat numbers
	ErrInputInvalid = errors.New("invalid input")

	// ErrNotEnrolled is returned when dropping without an active claim
	ErrNotEnrolled = errors.New("student has no active registration for this course")

	// ErrCourseCompleted is a state violation with its own HTTP mapping:
	// completed courses are gone, not merely closed
	ErrCourseCompleted = errors.New("course is completed")
)
