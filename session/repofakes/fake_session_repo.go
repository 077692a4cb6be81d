package repofakes

import (
	"sync"

	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/jrsteele09/go-curation-client/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps the session record in memory and counts writes.
type FakeSessionRepo struct {
	lock    sync.RWMutex
	record  *session.Record
	saves   int
	clears  int
	SaveErr error // Returned by Save when set
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

// NewFakeSessionRepoWith starts the repo holding record, as if it had been
// persisted by an earlier run.
func NewFakeSessionRepoWith(record session.Record) *FakeSessionRepo {
	return &FakeSessionRepo{record: &record}
}

func (r *FakeSessionRepo) Load() (*session.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.record == nil {
		return nil, cerrors.ErrNoSession
	}
	record := *r.record
	return &record, nil
}

func (r *FakeSessionRepo) Save(record *session.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}
	copied := *record
	r.record = &copied
	r.saves++
	return nil
}

func (r *FakeSessionRepo) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.record = nil
	r.clears++
	return nil
}

// Saves is the number of successful Save calls.
func (r *FakeSessionRepo) Saves() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.saves
}

// Clears is the number of Clear calls.
func (r *FakeSessionRepo) Clears() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.clears
}
