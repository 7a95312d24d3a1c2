package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "fabricflow:auth:revoked:"

// Denylist remembers revoked token ids until they would have expired.
type Denylist struct {
	client redis.UniversalClient
}

// NewDenylist builds a redis-backed Denylist.
func NewDenylist(client redis.UniversalClient) *Denylist {
	return &Denylist{client: client}
}

// Revoke lists jti until expiresAt.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistPrefix+jti, 1, ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, denylistPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
