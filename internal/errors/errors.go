package errors

import "errors"

// Common error types for the curation client
var (
	// Session errors
	ErrNoSession           = errors.New("no active session")
	ErrOperationInProgress = errors.New("session operation already in progress")
	ErrEmptySiteToken      = errors.New("session has an empty site token")

	// OAuth redirect errors
	ErrMissingCallbackParams = errors.New("missing code or state parameter")
	ErrStateMismatch         = errors.New("state mismatch, possible CSRF attempt")
	ErrNoPendingState        = errors.New("no pending login state")

	// Settings errors
	ErrInvalidSettings = errors.New("invalid settings")

	// General errors
	ErrNotFound = errors.New("not found")
)
