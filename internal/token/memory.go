package token

import (
	"context"
	"sync"
)

// InMemory implements RefreshStore with in-process concurrency safety. The
// Revoke path performs the same compare-and-set a durable store does with a
// conditional UPDATE.
type InMemory struct {
	mu   sync.Mutex
	byID map[string]*RefreshToken // keyed by jti
}

var _ RefreshStore = (*InMemory)(nil)

// NewInMemory creates an empty refresh token ledger.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*RefreshToken)}
}

func (s *InMemory) Create(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.byID[tok.JTI] = &cp
	return nil
}

func (s *InMemory) FindByJTI(ctx context.Context, jti string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[jti]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemory) Revoke(ctx context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[jti]
	if !ok {
		return ErrNotFound
	}
	if rec.Revoked {
		return ErrRevoked
	}
	rec.Revoked = true
	return nil
}

func (s *InMemory) RevokeAllForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.byID {
		if rec.UserID == userID {
			rec.Revoked = true
		}
	}
	return nil
}
