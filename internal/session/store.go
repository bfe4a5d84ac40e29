package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"mascot-factory/internal/account"
)

type Options struct {
	TTL time.Duration
}

// Store maps opaque tokens to account emails. Lookups slide the expiry.
type Store struct {
	ttl     time.Duration
	entries *cache.Cache
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	cleanup := ttl / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}

	return &Store{
		ttl:     ttl,
		entries: cache.New(ttl, cleanup),
	}
}

func (s *Store) Create(email string) string {
	token := uuid.NewString()
	s.entries.Set(token, account.NormalizeEmail(email), s.ttl)
	return token
}

func (s *Store) Lookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	v, ok := s.entries.Get(token)
	if !ok {
		return "", false
	}
	email, _ := v.(string)
	s.entries.Set(token, email, s.ttl)
	return email, email != ""
}

func (s *Store) Destroy(token string) {
	s.entries.Delete(token)
}

// DestroyUser drops every session that belongs to email.
func (s *Store) DestroyUser(email string) {
	email = account.NormalizeEmail(email)
	for token, item := range s.entries.Items() {
		if v, _ := item.Object.(string); v == email {
			s.entries.Delete(token)
		}
	}
}
