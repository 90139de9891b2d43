package revoke

import (
	"context"
	"sync"
	"time"
)

// Memory implements List in process. Used by tests and by cmd/api when no
// Redis address is configured; entries expire lazily on lookup.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> expiry
	now     func() time.Time
}

var _ List = (*Memory)(nil)

// NewMemory creates an empty in-process revocation list.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time), now: time.Now}
}

// NewMemoryWithClock is NewMemory with an overridden time source.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	if now != nil {
		m.now = now
	}
	return m
}

func (m *Memory) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[jti] = m.now().Add(ttl)
	return nil
}

func (m *Memory) Contains(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if m.now().After(expiry) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}
