package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/fabricflow/fabricflow/internal/shared"
)

// RedisLocker implements Locker with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker constructs a locker. ttl bounds both the lock lifetime and
// the time spent waiting for it.
func NewRedisLocker(client redislock.RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: redislock.New(client), ttl: ttl}
}

// Obtain blocks until key is free or the ttl elapses.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, shared.Conflict("numbering for %s is busy, retry", key)
	}
	if err != nil {
		return nil, fmt.Errorf("sequence: obtain lock %s: %w", key, err)
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}
