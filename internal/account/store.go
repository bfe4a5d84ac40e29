package account

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("user not found")

// Store persists user records. Emails are stored normalized. Create fails
// with ErrExists for a taken email; Save overwrites.
type Store interface {
	Get(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	Delete(ctx context.Context, email string) error
}

type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) Get(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	if u == nil {
		return errors.New("nil user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *u
	cp.Email = NormalizeEmail(cp.Email)
	if _, ok := s.users[cp.Email]; ok {
		return ErrExists
	}
	s.users[cp.Email] = cp
	return nil
}

func (s *MemoryStore) Save(_ context.Context, u *User) error {
	if u == nil {
		return errors.New("nil user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *u
	cp.Email = NormalizeEmail(cp.Email)
	s.users[cp.Email] = cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = NormalizeEmail(email)
	if _, ok := s.users[email]; !ok {
		return ErrNotFound
	}
	delete(s.users, email)
	return nil
}
