// Package revoke records token identifiers invalidated before their natural
// expiry. Entries self-expire alongside the token they block, so the store
// never asserts validity, only invalidity.
package revoke

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blacklist:"

// List is the shared revocation store consulted on every authenticated
// request. Contains returns an error when the store is unreachable; callers
// must treat that as an infrastructure failure, never as "not blacklisted".
type List interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// Redis implements List on a shared Redis instance.
type Redis struct {
	client *redis.Client
}

var _ List = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("revoke: redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

// Add records the identifier with a TTL equal to the token's remaining
// lifetime, so the entry never outlives the token it blocks.
func (r *Redis) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired naturally; nothing to block.
		return nil
	}
	return r.client.Set(ctx, keyPrefix+jti, "1", ttl).Err()
}

// Contains reports whether the identifier is blacklisted.
func (r *Redis) Contains(ctx context.Context, jti string) (bool, error) {
	_, err := r.client.Get(ctx, keyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
