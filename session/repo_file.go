package session

import (
	"encoding/json"
	"io/fs"
	"os"

	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/jrsteele09/go-curation-client/internal/utils"
	"github.com/pkg/errors"
)

var _ Repo = (*FileRepo)(nil)

// FileRepo stores the session record as a JSON file.
type FileRepo struct {
	path string
}

// NewFileRepo creates a repo backed by the file at path.
func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

func (r *FileRepo) Load() (*Record, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cerrors.ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.Load] read session file")
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, "[FileRepo.Load] decode session file")
	}
	return &record, nil
}

func (r *FileRepo) Save(record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Save] encode session")
	}
	return errors.Wrap(utils.WriteFileAtomic(r.path, data, 0o600), "[FileRepo.Save] write session file")
}

func (r *FileRepo) Clear() error {
	return errors.Wrap(utils.RemoveIfExists(r.path), "[FileRepo.Clear] remove session file")
}
