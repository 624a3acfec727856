package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a stored status is not a known state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guarded transition for a trigger refuses
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrValidation is returned for missing or malformed request data
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the actor may not perform the action
	ErrAuthorization = errors.New("not authorized")

	// ErrConcurrentModification is returned when the request changed between read and write
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrIncompleteSubmission is returned when an accountability checklist lacks mandatory items
	ErrIncompleteSubmission = errors.New("incomplete accountability submission")

	// ErrNotFound is returned when the travel request does not exist
	ErrNotFound = errors.New("not found")
)
