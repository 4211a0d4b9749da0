package models

import "errors"

// Error kinds shared by every service. Specific errors wrap one of these with %w
// so the request layer can map them to a status without knowing each service.
var (
	// ErrNotFound indicates that a referenced board, list, task or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates that the caller lacks membership or ownership for the action
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates malformed input
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated indicates a missing or invalid credential
	ErrUnauthenticated = errors.New("authentication required")
)
