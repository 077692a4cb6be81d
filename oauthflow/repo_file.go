package oauthflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/jrsteele09/go-curation-client/internal/utils"
)

var _ StateRepo = (*FileStateRepo)(nil)

// FileStateRepo persists the pending state so a login begun by one CLI
// invocation can be completed by the next.
type FileStateRepo struct {
	path string
}

func NewFileStateRepo(path string) *FileStateRepo {
	return &FileStateRepo{path: path}
}

func (r *FileStateRepo) Save(state PendingState) error {
	if state.State == "" {
		return errors.New("state cannot be empty")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode login state: %w", err)
	}
	return utils.WriteFileAtomic(r.path, data, 0o600)
}

func (r *FileStateRepo) Load() (PendingState, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return PendingState{}, cerrors.ErrNoPendingState
	}
	if err != nil {
		return PendingState{}, fmt.Errorf("read login state: %w", err)
	}

	var state PendingState
	if err := json.Unmarshal(data, &state); err != nil {
		return PendingState{}, fmt.Errorf("decode login state: %w", err)
	}
	return state, nil
}

func (r *FileStateRepo) Delete() error {
	return utils.RemoveIfExists(r.path)
}
