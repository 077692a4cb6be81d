package oauthflow

import (
	"errors"
	"sync"

	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
)

var _ StateRepo = (*InMemoryStateRepo)(nil)

// InMemoryStateRepo is a thread-safe in-memory implementation of StateRepo
type InMemoryStateRepo struct {
	mu      sync.RWMutex
	pending *PendingState
}

// NewInMemoryStateRepo creates a new in-memory login state repository
func NewInMemoryStateRepo() *InMemoryStateRepo {
	return &InMemoryStateRepo{}
}

func (r *InMemoryStateRepo) Save(state PendingState) error {
	if state.State == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = &state
	return nil
}

func (r *InMemoryStateRepo) Load() (PendingState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.pending == nil {
		return PendingState{}, cerrors.ErrNoPendingState
	}
	return *r.pending, nil
}

func (r *InMemoryStateRepo) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	return nil
}
