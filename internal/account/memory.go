package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store. It is the default
// backend when no database is configured and the fixture for tests.
type MemoryStore struct {
	mu         sync.Mutex
	byID       map[string]*Account
	byEmail    map[string]string // lower(email) -> account id
	byIdentity map[string]string // provider + "\x00" + subjectID -> account id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Account),
		byEmail:    make(map[string]string),
		byIdentity: make(map[string]string),
	}
}

func identityKey(provider, subjectID string) string {
	return provider + "\x00" + subjectID
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.clone(), nil
}

func (s *MemoryStore) FindByIdentity(ctx context.Context, provider, subjectID string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIdentity[identityKey(provider, subjectID)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].clone(), nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].clone(), nil
}

// Create inserts the account and all of its identities under one lock
// acquisition. Uniqueness is checked before any index is written, so a
// failed create leaves nothing behind.
func (s *MemoryStore) Create(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(a.Email)
	if _, taken := s.byEmail[email]; taken {
		return ErrDuplicate
	}
	for provider, subjectID := range a.Identities {
		if _, taken := s.byIdentity[identityKey(provider, subjectID)]; taken {
			return ErrDuplicate
		}
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	stored := a.clone()
	s.byID[stored.ID] = stored
	s.byEmail[email] = stored.ID
	for provider, subjectID := range stored.Identities {
		s.byIdentity[identityKey(provider, subjectID)] = stored.ID
	}
	return nil
}

// Save replaces the stored account and rebuilds its identity index
// entries. Identity pairs held by other accounts stay untouched.
func (s *MemoryStore) Save(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[a.ID]
	if !ok {
		return ErrNotFound
	}

	for provider, subjectID := range a.Identities {
		key := identityKey(provider, subjectID)
		if owner, taken := s.byIdentity[key]; taken && owner != a.ID {
			return ErrDuplicate
		}
	}

	for provider, subjectID := range prev.Identities {
		delete(s.byIdentity, identityKey(provider, subjectID))
	}
	delete(s.byEmail, strings.ToLower(prev.Email))

	stored := a.clone()
	s.byID[stored.ID] = stored
	s.byEmail[strings.ToLower(stored.Email)] = stored.ID
	for provider, subjectID := range stored.Identities {
		s.byIdentity[identityKey(provider, subjectID)] = stored.ID
	}
	return nil
}
