package dispatch

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const dispatchColumns = `id, dispatch_number, store_id, items, total_items, total_value, status, dispatch_date,
	shipped_date, received_date, notes, is_deleted, created_by, created_at, updated_at`

// PgRepository implements Repository on PostgreSQL. Lines live in a JSONB
// items column since they never change after creation.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// Insert implements Repository.
func (r *PgRepository) Insert(ctx context.Context, d Dispatch) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO dispatches (`+dispatchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.DispatchNumber, d.StoreID, d.Items, d.TotalItems, d.TotalValue, d.Status, d.DispatchDate,
		d.ShippedDate, d.ReceivedDate, d.Notes, d.IsDeleted, d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("dispatch number %s already taken", d.DispatchNumber)
	}
	return err
}

// Update implements Repository.
func (r *PgRepository) Update(ctx context.Context, d Dispatch) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE dispatches SET status=$2, shipped_date=$3, received_date=$4,
		notes=$5, is_deleted=$6, updated_at=$7 WHERE id=$1`,
		d.ID, d.Status, d.ShippedDate, d.ReceivedDate, d.Notes, d.IsDeleted, d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get implements Repository.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Dispatch, error) {
	return r.get(ctx, id, "")
}

// Lock implements Repository.
func (r *PgRepository) Lock(ctx context.Context, id uuid.UUID) (Dispatch, error) {
	if !db.InTx(ctx) {
		return r.get(ctx, id, "")
	}
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *PgRepository) get(ctx context.Context, id uuid.UUID, suffix string) (Dispatch, error) {
	var d Dispatch
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &d, `SELECT `+dispatchColumns+` FROM dispatches WHERE id=$1`+suffix, id)
	if pgxscan.NotFound(err) {
		return Dispatch{}, shared.ErrNotFound
	}
	return d, err
}

// List implements Repository.
func (r *PgRepository) List(ctx context.Context, f Filter) ([]Dispatch, error) {
	q := db.Builder().Select(dispatchColumns).From("dispatches").
		Where(sq.Eq{"is_deleted": false}).
		OrderBy("dispatch_date DESC", "created_at DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	if f.StoreID != nil {
		q = q.Where(sq.Eq{"store_id": *f.StoreID})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"dispatch_date": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.Lt{"dispatch_date": f.To})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dispatch query: %w", err)
	}
	var out []Dispatch
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &out, sql, args...); err != nil {
		return nil, err
	}
	return out, nil
}
