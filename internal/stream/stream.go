// Package stream fan-outs security events to live subscribers (SSE clients).
package stream

import (
	"context"
	"sync"
	"time"
)

// Event types emitted by the auth surface.
const (
	TypeLogin         = "login"
	TypeLoginFailed   = "login_failed"
	TypeLogout        = "logout"
	TypeRefresh       = "refresh"
	TypeRefreshReuse  = "refresh_reuse"
	TypeBlacklistHit  = "blacklist_hit"
	TypeRegister      = "register"
	TypeEmailVerified = "email_verified"
)

// Event is one security-relevant occurrence on the auth surface.
type Event struct {
	Type      string    `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

// Stream fan-outs events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. A zero At is stamped with
// the current time.
func (s *Stream) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
