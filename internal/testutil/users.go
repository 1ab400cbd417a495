package testutil

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/user"
)

// UserStore implements user.Store
type UserStore struct {
	m *Memory
}

var _ user.Store = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, u *user.User) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.insert(u), nil
}

func (s *UserStore) insert(u *user.User) *user.User {
	row := clone(u)
	row.ID = newID(row.ID)
	u.ID = row.ID
	if row.DateJoined.IsZero() {
		row.DateJoined = s.m.now()
	}
	s.m.users = append(s.m.users, row)
	return clone(row)
}

func (s *UserStore) BulkCreate(_ context.Context, users []*user.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range users {
		s.insert(u)
	}
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return s.get(func(u *user.User) bool { return u.ID == id })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return s.get(func(u *user.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*user.User, error) {
	return s.get(func(u *user.User) bool { return u.Username == username })
}

func (s *UserStore) get(match func(*user.User) bool) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if u := find(s.m.users, match); u != nil {
		return clone(u), nil
	}
	return nil, user.ErrUserNotFound
}

func (s *UserStore) List(_ context.Context) ([]*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return cloneAll(s.m.users), nil
}

func (s *UserStore) Search(_ context.Context, text string, limit int) ([]*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	text = strings.ToLower(text)
	found := filter(s.m.users, func(u *user.User) bool {
		return u.IsActive && (strings.Contains(strings.ToLower(u.Username), text) ||
			strings.Contains(strings.ToLower(u.FullName), text) ||
			strings.Contains(strings.ToLower(u.Email), text))
	})
	slices.SortFunc(found, func(a, b *user.User) int {
		if c := strings.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return strings.Compare(a.Username, b.Username)
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}
