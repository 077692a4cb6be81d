package oauthflow

// StateRepo holds the single pending login state between Begin and Complete.
type StateRepo interface {
	// Save replaces the pending state
	Save(state PendingState) error

	// Load returns the pending state, or errors.ErrNoPendingState
	Load() (PendingState, error)

	// Delete consumes the pending state. Deleting when none exists is not an error
	Delete() error
}
