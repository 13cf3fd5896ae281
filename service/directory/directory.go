// Package directory resolves user ids against the persisted user store.
// The relay consults it only in token auth mode.
package directory

import (
	"context"
	"sync"

	"PPRelay/module/user/model"
	"PPRelay/tools/errs"
)

type UserDirectory interface {
	// GetUserByID returns errs.ErrUserNotFound when no such user exists.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Static is an in-memory directory, used by tests and small deployments.
type Static struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewStatic(users ...model.User) *Static {
	s := &Static{users: make(map[string]model.User, len(users))}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

func (s *Static) Put(u model.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *Static) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrUserNotFound.WrapMsg("", "user_id", id)
	}
	return &u, nil
}
