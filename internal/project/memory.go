package project

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemory is a map-backed Store for tests and local runs.
type InMemory struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewInMemory returns an empty in-memory project store.
func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[string]*Project)}
}

func (s *InMemory) Create(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return fmt.Errorf("project: duplicate id %s", p.ID)
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) Update(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *InMemory) List(ctx context.Context, q ListQuery) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var idSet map[string]bool
	if q.IDs != nil {
		idSet = make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			idSet[id] = true
		}
	}
	statusSet := make(map[Status]bool, len(q.Statuses))
	for _, st := range q.Statuses {
		statusSet[st] = true
	}
	var out []*Project
	for _, p := range s.projects {
		if idSet != nil && !idSet[p.ID] {
			continue
		}
		if !statusSet[p.Status] {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
