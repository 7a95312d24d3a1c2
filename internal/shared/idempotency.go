package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fabricflow/fabricflow/internal/platform/db"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// ConnProvider hands out the connection bound to ctx, a transaction when one is open.
type ConnProvider interface {
	Conn(ctx context.Context) db.Querier
}

// IdempotencyStore persists processed keys together with the resource they produced.
type IdempotencyStore struct {
	db ConnProvider
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(conns ConnProvider) *IdempotencyStore {
	return &IdempotencyStore{db: conns}
}

// Lookup returns the resource id recorded for key.
func (s *IdempotencyStore) Lookup(ctx context.Context, module, key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("idempotency store not initialised")
	}
	var resourceID string
	err := s.db.Conn(ctx).QueryRow(ctx, `SELECT resource_id FROM idempotency_keys WHERE module=$1 AND key=$2`, module, key).Scan(&resourceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return resourceID, true, nil
}

// Claim ensures key uniqueness per module and binds it to resourceID. It
// must run inside the same transaction as the resource it guards.
func (s *IdempotencyStore) Claim(ctx context.Context, module, key, resourceID string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.db.Conn(ctx).Exec(ctx, `INSERT INTO idempotency_keys (key, module, resource_id, created_at) VALUES ($1, $2, $3, $4)`, key, module, resourceID, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.db.Conn(ctx).Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
