package userrepo

import "github.com/jrsteele09/go-curation-client/api"

// Repo stores the user profiles served by the reference API.
type Repo interface {
	// Upsert creates or replaces a user, assigning an ID when empty
	Upsert(user *api.User) error

	// GetByID returns a copy of the user, or errors.ErrNotFound
	GetByID(id string) (*api.User, error)

	// SetPermissions replaces a user's permission bitmask and returns the updated copy
	SetPermissions(id string, permissions api.Permissions) (*api.User, error)

	// List returns users ordered by ID
	List(offset, limit int) ([]*api.User, error)
}
