package userrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-curation-client/api"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	lock  sync.RWMutex
	users map[string]api.User
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		users: make(map[string]api.User),
	}
}

func (r *InMemoryRepo) Upsert(user *api.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryRepo) GetByID(id string) (*api.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, cerrors.ErrNotFound
	}
	return &user, nil
}

func (r *InMemoryRepo) SetPermissions(id string, permissions api.Permissions) (*api.User, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, cerrors.ErrNotFound
	}
	user.Permissions = permissions
	r.users[id] = user
	return &user, nil
}

func (r *InMemoryRepo) List(offset, limit int) ([]*api.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*api.User, 0, len(r.users))
	for _, u := range r.users {
		user := u
		list = append(list, &user)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	if offset >= len(list) {
		return []*api.User{}, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}
