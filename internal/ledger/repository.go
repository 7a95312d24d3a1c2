package ledger

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// PgRepository stores entries in stock_history.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// InsertEntry implements Repository.
func (r *PgRepository) InsertEntry(ctx context.Context, e Entry) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO stock_history
		(id, product_id, store_id, movement_type, quantity_before, quantity_change, quantity_after, reference_type, reference_id, notes, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)`,
		e.ID, e.ProductID, e.StoreID, e.Type, e.QuantityBefore, e.QuantityChange, e.QuantityAfter,
		e.ReferenceType, e.ReferenceID, e.Notes, e.ActorID, e.CreatedAt)
	return err
}

// ListEntries implements Repository.
func (r *PgRepository) ListEntries(ctx context.Context, f Filter) ([]Entry, error) {
	q := db.Builder().
		Select("id", "product_id", "store_id", "movement_type AS type", "quantity_before", "quantity_change",
			"quantity_after", "COALESCE(reference_type, '') AS reference_type", "reference_id", "notes", "actor_id", "created_at").
		From("stock_history").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	if f.ProductID != nil {
		q = q.Where(sq.Eq{"product_id": *f.ProductID})
	}
	if f.StoreID != nil {
		q = q.Where(sq.Eq{"store_id": *f.StoreID})
	} else if f.FactoryOnly {
		q = q.Where(sq.Eq{"store_id": nil})
	}
	if f.Type != "" {
		q = q.Where(sq.Eq{"movement_type": f.Type})
	}
	if f.ReferenceID != nil {
		q = q.Where(sq.Eq{"reference_id": *f.ReferenceID})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.Lt{"created_at": f.To})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ledger query: %w", err)
	}
	var entries []Entry
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &entries, sql, args...); err != nil {
		return nil, err
	}
	return entries, nil
}
