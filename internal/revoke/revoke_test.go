package revoke

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBlacklistLifecycle(t *testing.T) {
	current := time.Now()
	list := NewMemoryWithClock(func() time.Time { return current })

	blacklisted, err := list.Contains(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if blacklisted {
		t.Fatal("empty list must not blacklist anything")
	}

	if err := list.Add(context.Background(), "jti-1", 10*time.Minute); err != nil {
		t.Fatalf("Add: %v", err)
	}

	blacklisted, err = list.Contains(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !blacklisted {
		t.Fatal("entry must be blacklisted immediately after Add")
	}

	// Entry expires with the token it blocks.
	current = current.Add(11 * time.Minute)
	blacklisted, err = list.Contains(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if blacklisted {
		t.Fatal("entry must expire after its ttl")
	}
}

func TestMemoryIgnoresNonPositiveTTL(t *testing.T) {
	list := NewMemory()
	if err := list.Add(context.Background(), "jti-2", 0); err != nil {
		t.Fatalf("Add: %v", err)
	}
	blacklisted, err := list.Contains(context.Background(), "jti-2")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if blacklisted {
		t.Fatal("expired-at-blacklist-time tokens need no entry")
	}
}
