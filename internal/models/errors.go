package models

import "errors"

// Error taxonomy for dispatch operations. Callers classify failures with
// errors.Is; repositories and services wrap these with context via
// fmt.Errorf("...: %w", err).
var (
	// ErrUnauthorized covers missing or invalid identity and ownership
	// violations. Fatal to the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation covers malformed input such as an unknown emergency
	// type or a missing location. Never retried automatically.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers unknown request or provider ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition covers illegal or duplicate status changes. It
	// usually indicates a race with another actor; clients should re-fetch
	// the request and reconcile instead of treating it as a hard failure.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrLocationUnavailable is raised when device location could not be
	// acquired in time and no manual position has been entered yet.
	ErrLocationUnavailable = errors.New("location unavailable")
)
