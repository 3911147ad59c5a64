package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "sundown:lock:"
	lockTTL       = 15 * time.Second
	lockRetry     = 50 * time.Millisecond
)

// PhoneLocker serializes conversation handling per phone number using
// Redis SET NX locks. Concurrent inbound messages from the same client
// must not interleave a role transition; messages from different clients
// proceed in parallel.
type PhoneLocker struct {
	client *redis.Client
}

// NewPhoneLocker builds a Redis-backed locker.
func NewPhoneLocker(r *Redis) *PhoneLocker {
	return &PhoneLocker{client: r.Client}
}

// Acquire blocks until the lock for key is held or ctx expires. The
// returned release function is safe to call exactly once.
func (l *PhoneLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}

	release := func() {
		// Delete only if we still own the lock.
		const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.Background(), script, []string{redisKey}, token).Err()
	}
	return release, nil
}
