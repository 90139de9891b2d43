package identity

import (
	"context"
	"fmt"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and by cmd/api when no database is configured.
type InMemory struct {
	mu     sync.RWMutex
	users  map[string]*User
	idents map[string]*AuthIdentity // keyed by provider + "\x00" + providerUserID
	codes  []*VerificationCode
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty identity store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:  make(map[string]*User),
		idents: make(map[string]*AuthIdentity),
	}
}

func (s *InMemory) Users(ctx context.Context) UserStore              { return (*memUsers)(s) }
func (s *InMemory) Identities(ctx context.Context) AuthIdentityStore { return (*memIdents)(s) }
func (s *InMemory) Codes(ctx context.Context) VerificationCodeStore  { return (*memCodes)(s) }

type memUsers InMemory

func (s *memUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email %s", ErrConflict, u.Email)
		}
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %s", ErrConflict, u.Username)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUsers) SetEmailVerified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

type memIdents InMemory

func identKey(provider Provider, providerUserID string) string {
	return string(provider) + "\x00" + providerUserID
}

func (s *memIdents) Create(ctx context.Context, ident *AuthIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identKey(ident.Provider, ident.ProviderUserID)
	if _, ok := s.idents[key]; ok {
		return fmt.Errorf("%w: identity %s", ErrConflict, ident.ProviderUserID)
	}
	cp := *ident
	s.idents[key] = &cp
	return nil
}

func (s *memIdents) FindLocal(ctx context.Context, providerUserID string) (*AuthIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.idents[identKey(ProviderLocal, providerUserID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

type memCodes InMemory

func (s *memCodes) Create(ctx context.Context, code *VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *code
	s.codes = append(s.codes, &cp)
	return nil
}

func (s *memCodes) LatestUnused(ctx context.Context, userID string, purpose Purpose) (*VerificationCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		c := s.codes[i]
		if c.UserID == userID && c.Purpose == purpose && !c.Used {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memCodes) MarkUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id {
			c.Used = true
			return nil
		}
	}
	return ErrNotFound
}
