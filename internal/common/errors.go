package common

import "errors"

var (
	// Backend wiring errors.
	ErrNotConfigured = errors.New("backend not configured")

	// Session and access errors.
	ErrAuthRequired = errors.New("authentication required")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Submission flow errors.
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
)
