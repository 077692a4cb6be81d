package session

// Repo defines the interface for durable session storage.
// At most one record exists at a time.
type Repo interface {
	// Load returns the persisted record, or errors.ErrNoSession when there is none
	Load() (*Record, error)

	// Save replaces the persisted record
	Save(record *Record) error

	// Clear removes the persisted record. Clearing an empty repo is not an error
	Clear() error
}
