package membership

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemory implements Store with the same uniqueness guarantee a database
// constraint provides on (user_id, project_id).
type InMemory struct {
	mu     sync.Mutex
	byID   map[string]*Membership
	byPair map[string]string // userID+"\x00"+projectID -> membership id
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty membership store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]*Membership),
		byPair: make(map[string]string),
	}
}

func pairKey(userID, projectID string) string {
	return userID + "\x00" + projectID
}

func (s *InMemory) Create(ctx context.Context, m *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(m.UserID, m.ProjectID)
	if _, ok := s.byPair[key]; ok {
		return fmt.Errorf("%w: user %s in project %s", ErrConflict, m.UserID, m.ProjectID)
	}
	cp := *m
	s.byID[m.ID] = &cp
	s.byPair[key] = m.ID
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) FindByUserAndProject(ctx context.Context, userID, projectID string) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPair[pairKey(userID, projectID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) Update(ctx context.Context, m *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[m.ID]; !ok {
		return ErrNotFound
	}
	cp := *m
	cp.UpdatedAt = time.Now().UTC()
	s.byID[m.ID] = &cp
	return nil
}

func (s *InMemory) ListByProject(ctx context.Context, projectID string) ([]*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Membership
	for _, m := range s.byID {
		if m.ProjectID == projectID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) ListActiveByUser(ctx context.Context, userID string, roles []Role) ([]*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Membership
	for _, m := range s.byID {
		if m.UserID != userID || m.Status != StatusActive {
			continue
		}
		if len(roles) > 0 && !roleIn(m.Role, roles) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func roleIn(r Role, roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
